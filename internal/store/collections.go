package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

// PutCollection stages a collection record on w.
func (s *Store) PutCollection(w db.Writer, c waste.Collection) error {
	raw, err := cbor.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	if err := w.Put(makeIDKey(prefixCollection, c.ID), raw); err != nil {
		return fmt.Errorf("put collection: %w", err)
	}
	return nil
}

// GetCollection retrieves a collection by id.
func (s *Store) GetCollection(id uint64) (waste.Collection, error) {
	raw, err := s.db.Get(makeIDKey(prefixCollection, id))
	if err != nil {
		if isNotFound(err) {
			return waste.Collection{}, ErrCollectionNotFound
		}
		return waste.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	var c waste.Collection
	if err := cbor.Unmarshal(raw, &c); err != nil {
		return waste.Collection{}, fmt.Errorf("unmarshal collection: %w", err)
	}
	return c, nil
}

// ForEachCollection walks all collections in id order.
func (s *Store) ForEachCollection(fn func(waste.Collection) error) error {
	return s.forEach(prefixCollection, func(value []byte) error {
		var c waste.Collection
		if err := cbor.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("unmarshal collection: %w", err)
		}
		return fn(c)
	})
}
