package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

// appendEvent assigns the next sequence number, chains the digest and
// stages the record on the batch. The digest covers the CBOR body with
// PrevDigest set and Digest zeroed, so any rewrite of history breaks the
// chain.
func (l *Ledger) appendEvent(batch db.Batch, ev waste.Event) (waste.Event, error) {
	seq, err := l.store.NextID(batch, store.SeqEvent)
	if err != nil {
		return waste.Event{}, fmt.Errorf("next event seq: %w", err)
	}
	head, err := l.store.EventHead()
	if err != nil {
		return waste.Event{}, fmt.Errorf("event head: %w", err)
	}

	ev.Seq = seq
	ev.PrevDigest = head
	ev.Digest = waste.ZeroHash

	digest, err := eventDigest(ev)
	if err != nil {
		return waste.Event{}, err
	}
	ev.Digest = digest

	if err := l.store.AppendEvent(batch, ev); err != nil {
		return waste.Event{}, fmt.Errorf("append event: %w", err)
	}
	return ev, nil
}

func eventDigest(ev waste.Event) (waste.Hash, error) {
	ev.Digest = waste.ZeroHash
	raw, err := cbor.Marshal(ev)
	if err != nil {
		return waste.ZeroHash, fmt.Errorf("marshal event body: %w", err)
	}
	return blake2b.Sum256(raw), nil
}

// VerifyEventChain walks the whole log and checks every digest link.
// Used by audits and tests; the live path never rewrites history.
func (l *Ledger) VerifyEventChain() error {
	prev := waste.ZeroHash
	expectedSeq := uint64(1)

	return l.store.ForEachEvent(func(ev waste.Event) error {
		if ev.Seq != expectedSeq {
			return fmt.Errorf("event %d: sequence gap, want %d", ev.Seq, expectedSeq)
		}
		if ev.PrevDigest != prev {
			return fmt.Errorf("event %d: broken digest chain", ev.Seq)
		}
		digest, err := eventDigest(ev)
		if err != nil {
			return err
		}
		if digest != ev.Digest {
			return fmt.Errorf("event %d: digest mismatch", ev.Seq)
		}
		prev = ev.Digest
		expectedSeq++
		return nil
	})
}
