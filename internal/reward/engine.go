package reward

import (
	"errors"
	"fmt"
	"sync"

	"github.com/africycle/africycle/internal/safemath"
	"github.com/africycle/africycle/internal/waste"
)

// Scale is the fixed-point denominator for all multiplier tables. A
// multiplier of 10_000 is the identity; results truncate toward zero.
const Scale = 10_000

var (
	ErrInvalidStream  = errors.New("invalid waste stream")
	ErrInvalidQuality = errors.New("invalid quality grade")
)

// Tables holds the admin-mutable rate configuration. Every table is total
// over its enum domain.
type Tables struct {
	// BaseRate is the token payout per kg, before quality scaling.
	BaseRate [waste.NumStreams]uint64
	// QualityMultiplier scales the base reward, in units of Scale.
	QualityMultiplier [waste.NumStreams][waste.NumQualities]uint64
	// CarbonRate is the estimated offset in grams CO2e per kg, before
	// quality scaling.
	CarbonRate [waste.NumStreams]uint64
	// QualityCarbonMultiplier scales the carbon estimate, in units of Scale.
	QualityCarbonMultiplier [waste.NumQualities]uint64
}

// DefaultTables returns the rates the ledger ships with. The on-chain
// deployment seeds the same relative ordering: e-waste pays the most per
// kg, general waste the least.
func DefaultTables() Tables {
	t := Tables{
		BaseRate: [waste.NumStreams]uint64{
			waste.StreamPlastic: 500,
			waste.StreamEWaste:  1200,
			waste.StreamMetal:   800,
			waste.StreamGeneral: 200,
		},
		CarbonRate: [waste.NumStreams]uint64{
			waste.StreamPlastic: 1500,
			waste.StreamEWaste:  900,
			waste.StreamMetal:   2500,
			waste.StreamGeneral: 400,
		},
		QualityCarbonMultiplier: [waste.NumQualities]uint64{
			waste.QualityLow:     9000,
			waste.QualityMedium:  10000,
			waste.QualityHigh:    11000,
			waste.QualityPremium: 12500,
		},
	}
	for s := range t.QualityMultiplier {
		t.QualityMultiplier[s] = [waste.NumQualities]uint64{
			waste.QualityLow:     8000,
			waste.QualityMedium:  10000,
			waste.QualityHigh:    12000,
			waste.QualityPremium: 15000,
		}
	}
	return t
}

// Engine computes rewards and carbon offsets from the current tables.
// Computations are pure: the same inputs against the same tables always
// produce the same outputs. Setters take effect only for computations
// performed after the update.
type Engine struct {
	mu     sync.RWMutex
	tables Tables
}

func NewEngine(tables Tables) *Engine {
	return &Engine{tables: tables}
}

// Reward computes weight * baseRate[stream] * qualityMultiplier[stream][quality] / Scale
// with truncating integer division. Overflow surfaces as an error rather
// than wrapping.
func (e *Engine) Reward(stream waste.Stream, weightKg uint64, quality waste.Quality) (uint64, error) {
	if !stream.Valid() {
		return 0, ErrInvalidStream
	}
	if !quality.Valid() {
		return 0, ErrInvalidQuality
	}

	e.mu.RLock()
	base := e.tables.BaseRate[stream]
	mul := e.tables.QualityMultiplier[stream][quality]
	e.mu.RUnlock()

	return scaled(weightKg, base, mul)
}

// CarbonOffset computes weight * carbonRate[stream] * qualityCarbonMultiplier[quality] / Scale.
func (e *Engine) CarbonOffset(stream waste.Stream, weightKg uint64, quality waste.Quality) (uint64, error) {
	if !stream.Valid() {
		return 0, ErrInvalidStream
	}
	if !quality.Valid() {
		return 0, ErrInvalidQuality
	}

	e.mu.RLock()
	rate := e.tables.CarbonRate[stream]
	mul := e.tables.QualityCarbonMultiplier[quality]
	e.mu.RUnlock()

	return scaled(weightKg, rate, mul)
}

func scaled(weight, rate, mul uint64) (uint64, error) {
	v, ok := safemath.Mul64(weight, rate)
	if !ok {
		return 0, fmt.Errorf("weight times rate: %w", safemath.ErrOverflow)
	}
	v, ok = safemath.Mul64(v, mul)
	if !ok {
		return 0, fmt.Errorf("apply multiplier: %w", safemath.ErrOverflow)
	}
	return v / Scale, nil
}

func (e *Engine) SetBaseRate(stream waste.Stream, rate uint64) error {
	if !stream.Valid() {
		return ErrInvalidStream
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables.BaseRate[stream] = rate
	return nil
}

func (e *Engine) SetQualityMultiplier(stream waste.Stream, quality waste.Quality, mul uint64) error {
	if !stream.Valid() {
		return ErrInvalidStream
	}
	if !quality.Valid() {
		return ErrInvalidQuality
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables.QualityMultiplier[stream][quality] = mul
	return nil
}

func (e *Engine) SetCarbonRate(stream waste.Stream, rate uint64) error {
	if !stream.Valid() {
		return ErrInvalidStream
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables.CarbonRate[stream] = rate
	return nil
}

func (e *Engine) SetQualityCarbonMultiplier(quality waste.Quality, mul uint64) error {
	if !quality.Valid() {
		return ErrInvalidQuality
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables.QualityCarbonMultiplier[quality] = mul
	return nil
}

// Snapshot returns a copy of the current tables, used for persistence.
func (e *Engine) Snapshot() Tables {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tables
}
