package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

// PutListing stages a listing record on w.
func (s *Store) PutListing(w db.Writer, l waste.Listing) error {
	raw, err := cbor.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}
	if err := w.Put(makeIDKey(prefixListing, l.ID), raw); err != nil {
		return fmt.Errorf("put listing: %w", err)
	}
	return nil
}

// GetListing retrieves a listing by id.
func (s *Store) GetListing(id uint64) (waste.Listing, error) {
	raw, err := s.db.Get(makeIDKey(prefixListing, id))
	if err != nil {
		if isNotFound(err) {
			return waste.Listing{}, ErrListingNotFound
		}
		return waste.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	var l waste.Listing
	if err := cbor.Unmarshal(raw, &l); err != nil {
		return waste.Listing{}, fmt.Errorf("unmarshal listing: %w", err)
	}
	return l, nil
}

// ForEachListing walks all listings in id order.
func (s *Store) ForEachListing(fn func(waste.Listing) error) error {
	return s.forEach(prefixListing, func(value []byte) error {
		var l waste.Listing
		if err := cbor.Unmarshal(value, &l); err != nil {
			return fmt.Errorf("unmarshal listing: %w", err)
		}
		return fn(l)
	})
}
