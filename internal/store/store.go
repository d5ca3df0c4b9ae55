// Package store persists ledger entities in a key-value store. Each
// entity type lives under its own one-byte key prefix; numeric ids are
// big-endian so iteration order matches id order. Mutations are staged on
// a db.Batch by the caller and commit as one atomic unit.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
	"github.com/africycle/africycle/pkg/db/pebble"
)

func isNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrBatchNotFound      = errors.New("processing batch not found")
	ErrListingNotFound    = errors.New("listing not found")
	ErrEventNotFound      = errors.New("event not found")
)

const (
	prefixUser byte = iota + 1
	prefixCollection
	prefixBatch
	prefixListing
	prefixUserStats
	prefixPlatformStats
	prefixRates
	prefixEvent
	prefixEventHead
	prefixSeq
)

// Sequence names. Ids are monotonic and never reused, terminal states
// included.
const (
	SeqCollection byte = iota + 1
	SeqBatch
	SeqListing
	SeqEvent
)

// Store wraps a KVStore with entity-level accessors.
type Store struct {
	db db.KVStore
}

func New(db db.KVStore) *Store {
	return &Store{db: db}
}

// NewBatch starts an atomic write batch against the underlying store.
func (s *Store) NewBatch() db.Batch {
	return s.db.NewBatch()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NextID advances a sequence and stages the new value on w. The first id
// issued is 1. The caller must commit w for the advance to stick.
func (s *Store) NextID(w db.Writer, seq byte) (uint64, error) {
	key := []byte{prefixSeq, seq}
	current := uint64(0)

	raw, err := s.db.Get(key)
	if err == nil {
		if len(raw) != 8 {
			return 0, fmt.Errorf("malformed sequence record: %d bytes", len(raw))
		}
		current = binary.BigEndian.Uint64(raw)
	} else if !isNotFound(err) {
		return 0, fmt.Errorf("get sequence: %w", err)
	}

	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := w.Put(key, buf); err != nil {
		return 0, fmt.Errorf("stage sequence: %w", err)
	}
	return next, nil
}

func makeIDKey(prefix byte, id uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

func makeAddrKey(prefix byte, addr waste.Address) []byte {
	key := make([]byte, 1+waste.AddressSize)
	key[0] = prefix
	copy(key[1:], addr[:])
	return key
}

// forEach walks every value under a prefix.
func (s *Store) forEach(prefix byte, fn func(value []byte) error) error {
	iter, err := s.db.NewIterator([]byte{prefix}, []byte{prefix + 1})
	if err != nil {
		return fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return fmt.Errorf("read iterator value: %w", err)
		}
		if err := fn(value); err != nil {
			return err
		}
	}
	return nil
}
