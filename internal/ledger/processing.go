package ledger

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/waste"
)

// CreateProcessingBatch groups verified collections into a processing run
// owned by the caller. Every input must be VERIFIED, unconsumed, of the
// same waste stream, and (if pre-bound) bound to the caller. Each
// collection can sit in at most one open batch.
func (l *Ledger) CreateProcessingBatch(caller waste.Address, collectionIDs []uint64, label string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireRole(caller, waste.RoleRecycler); err != nil {
		return 0, err
	}
	if len(collectionIDs) == 0 {
		return 0, fmt.Errorf("%w: empty collection list", ErrInvalidInput)
	}

	var (
		inputs      []waste.Collection
		inputWeight uint64
		stream      waste.Stream
		merr        *multierror.Error
		seen        = make(map[uint64]struct{}, len(collectionIDs))
	)

	for i, id := range collectionIDs {
		if _, dup := seen[id]; dup {
			merr = multierror.Append(merr, fmt.Errorf("collection %d: duplicate id", id))
			continue
		}
		seen[id] = struct{}{}

		c, err := l.store.GetCollection(id)
		if errors.Is(err, store.ErrCollectionNotFound) {
			merr = multierror.Append(merr, fmt.Errorf("collection %d: not found", id))
			continue
		}
		if err != nil {
			return 0, err
		}

		switch {
		case c.Status != waste.CollectionVerified:
			merr = multierror.Append(merr, fmt.Errorf("collection %d: status %s, want verified", id, c.Status))
		case c.BatchID != 0:
			merr = multierror.Append(merr, fmt.Errorf("collection %d: already in batch %d", id, c.BatchID))
		case c.Recycler != caller:
			merr = multierror.Append(merr, fmt.Errorf("collection %d: bound to another recycler", id))
		case i > 0 && c.Stream != stream:
			merr = multierror.Append(merr, fmt.Errorf("collection %d: stream %s does not match batch stream %s", id, c.Stream, stream))
		default:
			if i == 0 {
				stream = c.Stream
			}
			inputs = append(inputs, c)
			inputWeight += c.WeightKg
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	id, err := l.store.NextID(batch, store.SeqBatch)
	if err != nil {
		return 0, err
	}

	pb := waste.ProcessingBatch{
		ID:            id,
		Recycler:      caller,
		Label:         label,
		Stream:        stream,
		Inputs:        collectionIDs,
		InputWeightKg: inputWeight,
		Status:        waste.BatchActive,
		CreatedAt:     l.timestamp(),
	}
	if err := l.store.PutBatch(batch, pb); err != nil {
		return 0, err
	}

	for _, c := range inputs {
		c.Status = waste.CollectionInProgress
		c.BatchID = id
		if err := l.store.PutCollection(batch, c); err != nil {
			return 0, err
		}
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:   waste.EventBatchCreated,
		Time:   pb.CreatedAt,
		Actor:  caller,
		Entity: id,
		Stream: stream,
		Amount: inputWeight,
	})
	if err != nil {
		return 0, err
	}

	delta, err := l.newStatsDelta()
	if err != nil {
		return 0, err
	}
	if err := delta.apply(ev); err != nil {
		return 0, err
	}
	if err := delta.stage(l.store, batch); err != nil {
		return 0, err
	}

	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("commit create batch: %w", err)
	}

	l.log.Info().
		Uint64("batch", id).
		Str("recycler", caller.String()).
		Int("inputs", len(inputs)).
		Uint64("input_weight_kg", inputWeight).
		Msg("processing batch created")
	return id, nil
}

// CompleteProcessing finishes an active batch: every input collection
// becomes COMPLETED and processed, and the output weight is credited to
// the recycler's inventory under the batch's stream. Output weight is not
// bounded by the input weight; yield loss and gain are both expected.
func (l *Ledger) CompleteProcessing(caller waste.Address, batchID, outputWeight uint64, outputQuality waste.Quality) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pb, err := l.store.GetBatch(batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if pb.Recycler != caller {
		return ErrUnauthorized
	}
	if pb.Status != waste.BatchActive {
		return ErrAlreadyCompleted
	}
	if !outputQuality.Valid() {
		return fmt.Errorf("%w: invalid quality grade", ErrInvalidInput)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	pb.Status = waste.BatchCompleted
	pb.OutputWeight = outputWeight
	pb.OutputQuality = outputQuality
	pb.CompletedAt = l.timestamp()
	if err := l.store.PutBatch(batch, pb); err != nil {
		return err
	}

	completed := make([]waste.Collection, 0, len(pb.Inputs))
	for _, id := range pb.Inputs {
		c, err := l.store.GetCollection(id)
		if err != nil {
			return err
		}
		c.Status = waste.CollectionCompleted
		c.Processed = true
		if err := l.store.PutCollection(batch, c); err != nil {
			return err
		}
		completed = append(completed, c)
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:    waste.EventBatchCompleted,
		Time:    pb.CompletedAt,
		Actor:   caller,
		Entity:  batchID,
		Stream:  pb.Stream,
		Quality: outputQuality,
		Amount:  outputWeight,
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
		return fmt.Errorf("commit complete processing: %w", err)
	}

	l.log.Info().
		Uint64("batch", batchID).
		Uint64("output_weight", outputWeight).
		Str("quality", outputQuality.String()).
		Msg("processing completed")
	for _, c := range completed {
		l.notifier.CollectionStatusChanged(c)
	}
	return nil
}

// CancelProcessingBatch abandons an active batch and releases its inputs
// back to VERIFIED so they can be re-batched. Owner only.
func (l *Ledger) CancelProcessingBatch(caller waste.Address, batchID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pb, err := l.store.GetBatch(batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if pb.Recycler != caller {
		return ErrNotOwner
	}
	if pb.Status != waste.BatchActive {
		return ErrAlreadyCompleted
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	pb.Status = waste.BatchCancelled
	if err := l.store.PutBatch(batch, pb); err != nil {
		return err
	}

	for _, id := range pb.Inputs {
		c, err := l.store.GetCollection(id)
		if err != nil {
			return err
		}
		c.Status = waste.CollectionVerified
		c.BatchID = 0
		if err := l.store.PutCollection(batch, c); err != nil {
			return err
		}
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:   waste.EventBatchCancelled,
		Time:   l.timestamp(),
		Actor:  caller,
		Entity: batchID,
		Stream: pb.Stream,
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
		return fmt.Errorf("commit cancel batch: %w", err)
	}

	l.log.Info().Uint64("batch", batchID).Msg("processing batch cancelled")
	return nil
}

// GetProcessingBatchDetails returns a processing batch by id.
func (l *Ledger) GetProcessingBatchDetails(id uint64) (waste.ProcessingBatch, error) {
	b, err := l.store.GetBatch(id)
	if errors.Is(err, store.ErrBatchNotFound) {
		return waste.ProcessingBatch{}, ErrNotFound
	}
	return b, err
}
