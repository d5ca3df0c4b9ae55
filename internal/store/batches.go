package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

// PutBatch stages a processing batch record on w.
func (s *Store) PutBatch(w db.Writer, b waste.ProcessingBatch) error {
	raw, err := cbor.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	if err := w.Put(makeIDKey(prefixBatch, b.ID), raw); err != nil {
		return fmt.Errorf("put batch: %w", err)
	}
	return nil
}

// GetBatch retrieves a processing batch by id.
func (s *Store) GetBatch(id uint64) (waste.ProcessingBatch, error) {
	raw, err := s.db.Get(makeIDKey(prefixBatch, id))
	if err != nil {
		if isNotFound(err) {
			return waste.ProcessingBatch{}, ErrBatchNotFound
		}
		return waste.ProcessingBatch{}, fmt.Errorf("get batch: %w", err)
	}
	var b waste.ProcessingBatch
	if err := cbor.Unmarshal(raw, &b); err != nil {
		return waste.ProcessingBatch{}, fmt.Errorf("unmarshal batch: %w", err)
	}
	return b, nil
}

// ForEachBatch walks all processing batches in id order.
func (s *Store) ForEachBatch(fn func(waste.ProcessingBatch) error) error {
	return s.forEach(prefixBatch, func(value []byte) error {
		var b waste.ProcessingBatch
		if err := cbor.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("unmarshal batch: %w", err)
		}
		return fn(b)
	})
}
