package ledger

import (
	"errors"
	"fmt"

	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/waste"
)

// Register creates a user record for the caller. Registration is
// self-service, one record per address, and roles are permanent. The
// admin capability is fixed at deployment and cannot be claimed here.
func (l *Ledger) Register(caller waste.Address, role waste.Role, name, location, contact string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch role {
	case waste.RoleCollector, waste.RoleRecycler, waste.RoleCorporatePartner:
	default:
		return fmt.Errorf("%w: role %s cannot be self-assigned", ErrInvalidInput, role)
	}
	if caller.IsZero() {
		return fmt.Errorf("%w: zero address", ErrInvalidInput)
	}
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	exists, err := l.store.HasUser(caller)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyRegistered
	}

	user := waste.User{
		Address:      caller,
		Role:         role,
		Name:         name,
		Location:     location,
		Contact:      contact,
		Verified:     false,
		Reputation:   waste.InitialReputation,
		RegisteredAt: l.timestamp(),
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	if err := l.store.PutUser(batch, user); err != nil {
		return err
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:  waste.EventUserRegistered,
		Time:  user.RegisteredAt,
		Actor: caller,
		Aux:   uint64(role),
	})
	if err != nil {
		return err
	}

	delta, err := l.newStatsDelta()
	if err != nil {
		return err
	}
	if err := delta.apply(ev); err != nil {
		return err
	}
	if err := delta.stage(l.store, batch); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}

	l.log.Info().
		Str("address", caller.String()).
		Str("role", role.String()).
		Msg("user registered")
	return nil
}

// VerifyUser marks a user as verified. Admin only.
func (l *Ledger) VerifyUser(caller, addr waste.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	user, err := l.store.GetUser(addr)
	if errors.Is(err, store.ErrUserNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	user.Verified = true

	batch := l.store.NewBatch()
	defer batch.Close()

	if err := l.store.PutUser(batch, user); err != nil {
		return err
	}
	if _, err := l.appendEvent(batch, waste.Event{
		Kind:    waste.EventUserVerified,
		Time:    l.timestamp(),
		Actor:   caller,
		Subject: addr,
	}); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit verify user: %w", err)
	}

	l.log.Info().Str("address", addr.String()).Msg("user verified")
	return nil
}

// UpdateReputation sets a user's reputation score. Admin only. The score
// must fall within [MinReputation, MaxReputation]; the reason is emitted
// to the audit log and carries no business meaning.
func (l *Ledger) UpdateReputation(caller, addr waste.Address, score uint64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if score > waste.MaxReputation {
		return fmt.Errorf("%w: reputation %d exceeds %d", ErrInvalidRange, score, waste.MaxReputation)
	}

	user, err := l.store.GetUser(addr)
	if errors.Is(err, store.ErrUserNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	user.Reputation = uint16(score)

	batch := l.store.NewBatch()
	defer batch.Close()

	if err := l.store.PutUser(batch, user); err != nil {
		return err
	}
	if _, err := l.appendEvent(batch, waste.Event{
		Kind:    waste.EventReputationUpdated,
		Time:    l.timestamp(),
		Actor:   caller,
		Subject: addr,
		Aux:     score,
	}); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit reputation update: %w", err)
	}

	l.log.Info().
		Str("address", addr.String()).
		Uint64("score", score).
		Str("reason", reason).
		Msg("reputation updated")
	return nil
}

// GetUserProfile returns the user record for an address.
func (l *Ledger) GetUserProfile(addr waste.Address) (waste.User, error) {
	u, err := l.store.GetUser(addr)
	if errors.Is(err, store.ErrUserNotFound) {
		return waste.User{}, ErrNotFound
	}
	return u, err
}
