// Package ledger implements the AfriCycle waste-management ledger: user
// registry, collection verification, processing batches, marketplace
// listings and the denormalized statistics kept alongside them.
//
// Every public mutation is one serialized atomic transaction: all
// preconditions are validated first, then every write (entities, stats,
// token moves, the event record) is staged on a single store batch and
// committed as one unit. A failure at any point leaves no trace.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/africycle/africycle/internal/reward"
	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/token"
	"github.com/africycle/africycle/internal/waste"
)

// ContractAccount holds the ledger's reward pool in the token book.
var ContractAccount = waste.Address{0xaf, 0xc1, 0xc1, 0xe0}

// Reputation drift applied by collection verification.
const (
	reputationBonusOnAccept   = 10
	reputationPenaltyOnReject = 25
)

// Notifier receives collection status changes after commit. Dispatch is
// fire-and-forget; no ledger invariant depends on delivery.
type Notifier interface {
	CollectionStatusChanged(c waste.Collection)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) CollectionStatusChanged(waste.Collection) {}

// LogNotifier writes status changes to the log, standing in for the
// off-chain email dispatcher.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) CollectionStatusChanged(c waste.Collection) {
	n.Log.Info().
		Uint64("collection", c.ID).
		Str("status", c.Status.String()).
		Str("collector", c.Collector.String()).
		Msg("collection status changed")
}

// Ledger is the single mutation point for all entities. The mutex
// reproduces the chain's one-at-a-time transaction ordering.
type Ledger struct {
	mu sync.Mutex

	store    *store.Store
	token    *token.Book
	engine   *reward.Engine
	admin    waste.Address
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// Config carries the ledger's collaborators and deployment parameters.
type Config struct {
	// Admin holds the administrative capability: user verification,
	// reputation updates, rate changes and contract funding.
	Admin    waste.Address
	Notifier Notifier
	Logger   zerolog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

func New(s *store.Store, book *token.Book, engine *reward.Engine, cfg Config) *Ledger {
	l := &Ledger{
		store:    s,
		token:    book,
		engine:   engine,
		admin:    cfg.Admin,
		notifier: cfg.Notifier,
		log:      cfg.Logger,
		now:      cfg.Now,
	}
	if l.notifier == nil {
		l.notifier = NopNotifier{}
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func (l *Ledger) timestamp() int64 {
	return l.now().Unix()
}

func (l *Ledger) isAdmin(caller waste.Address) bool {
	return !l.admin.IsZero() && caller == l.admin
}

func (l *Ledger) requireAdmin(caller waste.Address) error {
	if !l.isAdmin(caller) {
		return ErrUnauthorized
	}
	return nil
}

// requireUser loads the caller's record, mapping a missing record to
// ErrNotRegistered.
func (l *Ledger) requireUser(caller waste.Address) (waste.User, error) {
	u, err := l.store.GetUser(caller)
	if errors.Is(err, store.ErrUserNotFound) {
		return waste.User{}, ErrNotRegistered
	}
	if err != nil {
		return waste.User{}, err
	}
	return u, nil
}

// requireRole is the capability gate consumed by every role-bound
// operation.
func (l *Ledger) requireRole(caller waste.Address, role waste.Role) (waste.User, error) {
	u, err := l.requireUser(caller)
	if err != nil {
		return waste.User{}, err
	}
	if u.Role != role {
		return waste.User{}, ErrUnauthorized
	}
	return u, nil
}

func clampReputation(v int64) uint16 {
	if v < waste.MinReputation {
		return waste.MinReputation
	}
	if v > waste.MaxReputation {
		return waste.MaxReputation
	}
	return uint16(v)
}
