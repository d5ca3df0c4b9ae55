package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

var eventHeadKey = []byte{prefixEventHead}

// AppendEvent stages an event record under its sequence number and
// advances the head digest.
func (s *Store) AppendEvent(w db.Writer, ev waste.Event) error {
	raw, err := cbor.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := w.Put(makeIDKey(prefixEvent, ev.Seq), raw); err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	if err := w.Put(eventHeadKey, ev.Digest[:]); err != nil {
		return fmt.Errorf("put event head: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by sequence number.
func (s *Store) GetEvent(seq uint64) (waste.Event, error) {
	raw, err := s.db.Get(makeIDKey(prefixEvent, seq))
	if err != nil {
		if isNotFound(err) {
			return waste.Event{}, ErrEventNotFound
		}
		return waste.Event{}, fmt.Errorf("get event: %w", err)
	}
	var ev waste.Event
	if err := cbor.Unmarshal(raw, &ev); err != nil {
		return waste.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// EventHead returns the digest of the most recent event, or the zero hash
// for an empty log.
func (s *Store) EventHead() (waste.Hash, error) {
	raw, err := s.db.Get(eventHeadKey)
	if err != nil {
		if isNotFound(err) {
			return waste.ZeroHash, nil
		}
		return waste.ZeroHash, fmt.Errorf("get event head: %w", err)
	}
	if len(raw) != waste.HashSize {
		return waste.ZeroHash, fmt.Errorf("malformed event head: %d bytes", len(raw))
	}
	var h waste.Hash
	copy(h[:], raw)
	return h, nil
}

// ForEachEvent walks the event log in sequence order.
func (s *Store) ForEachEvent(fn func(waste.Event) error) error {
	return s.forEach(prefixEvent, func(value []byte) error {
		var ev waste.Event
		if err := cbor.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("unmarshal event: %w", err)
		}
		return fn(ev)
	})
}
