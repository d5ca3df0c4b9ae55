package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

var platformStatsKey = []byte{prefixPlatformStats}

// GetUserStats returns the stats record for an address; unknown addresses
// hold the zero record.
func (s *Store) GetUserStats(addr waste.Address) (waste.UserStats, error) {
	raw, err := s.db.Get(makeAddrKey(prefixUserStats, addr))
	if err != nil {
		if isNotFound(err) {
			return waste.UserStats{}, nil
		}
		return waste.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}
	var st waste.UserStats
	if err := cbor.Unmarshal(raw, &st); err != nil {
		return waste.UserStats{}, fmt.Errorf("unmarshal user stats: %w", err)
	}
	return st, nil
}

// PutUserStats stages a user stats record on w.
func (s *Store) PutUserStats(w db.Writer, addr waste.Address, st waste.UserStats) error {
	raw, err := cbor.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal user stats: %w", err)
	}
	if err := w.Put(makeAddrKey(prefixUserStats, addr), raw); err != nil {
		return fmt.Errorf("put user stats: %w", err)
	}
	return nil
}

// GetPlatformStats returns the platform-wide counters.
func (s *Store) GetPlatformStats() (waste.PlatformStats, error) {
	raw, err := s.db.Get(platformStatsKey)
	if err != nil {
		if isNotFound(err) {
			return waste.PlatformStats{}, nil
		}
		return waste.PlatformStats{}, fmt.Errorf("get platform stats: %w", err)
	}
	var st waste.PlatformStats
	if err := cbor.Unmarshal(raw, &st); err != nil {
		return waste.PlatformStats{}, fmt.Errorf("unmarshal platform stats: %w", err)
	}
	return st, nil
}

// PutPlatformStats stages the platform-wide counters on w.
func (s *Store) PutPlatformStats(w db.Writer, st waste.PlatformStats) error {
	raw, err := cbor.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal platform stats: %w", err)
	}
	if err := w.Put(platformStatsKey, raw); err != nil {
		return fmt.Errorf("put platform stats: %w", err)
	}
	return nil
}
