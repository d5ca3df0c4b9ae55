package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

// PutUser stages a user record on w.
func (s *Store) PutUser(w db.Writer, u waste.User) error {
	raw, err := cbor.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := w.Put(makeAddrKey(prefixUser, u.Address), raw); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by address.
func (s *Store) GetUser(addr waste.Address) (waste.User, error) {
	raw, err := s.db.Get(makeAddrKey(prefixUser, addr))
	if err != nil {
		if isNotFound(err) {
			return waste.User{}, ErrUserNotFound
		}
		return waste.User{}, fmt.Errorf("get user: %w", err)
	}
	var u waste.User
	if err := cbor.Unmarshal(raw, &u); err != nil {
		return waste.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return u, nil
}

// HasUser reports whether an address is registered.
func (s *Store) HasUser(addr waste.Address) (bool, error) {
	_, err := s.db.Get(makeAddrKey(prefixUser, addr))
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("get user: %w", err)
}

// ForEachUser walks all registered users.
func (s *Store) ForEachUser(fn func(waste.User) error) error {
	return s.forEach(prefixUser, func(value []byte) error {
		var u waste.User
		if err := cbor.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		return fn(u)
	})
}
