package ledger

import (
	"errors"
	"fmt"

	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/token"
	"github.com/africycle/africycle/internal/waste"
)

// CreateCollection records a waste-collection event owned by the caller.
// The caller must be a registered, verified collector. An optional
// recycler pre-binds verification to that recycler.
func (l *Ledger) CreateCollection(
	caller waste.Address,
	stream waste.Stream,
	weightKg uint64,
	location string,
	imageHash waste.Hash,
	pickupTime int64,
	recycler waste.Address,
) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	collector, err := l.requireRole(caller, waste.RoleCollector)
	if err != nil {
		return 0, err
	}
	if !collector.Verified {
		return 0, fmt.Errorf("%w: collector is not verified", ErrUnauthorized)
	}
	if !stream.Valid() {
		return 0, fmt.Errorf("%w: invalid waste stream", ErrInvalidInput)
	}
	if weightKg == 0 {
		return 0, ErrInvalidWeight
	}

	if !recycler.IsZero() {
		bound, err := l.store.GetUser(recycler)
		if errors.Is(err, store.ErrUserNotFound) {
			return 0, fmt.Errorf("%w: recycler %s is not registered", ErrInvalidInput, recycler)
		}
		if err != nil {
			return 0, err
		}
		if bound.Role != waste.RoleRecycler {
			return 0, fmt.Errorf("%w: %s is not a recycler", ErrInvalidInput, recycler)
		}
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	id, err := l.store.NextID(batch, store.SeqCollection)
	if err != nil {
		return 0, err
	}

	collection := waste.Collection{
		ID:         id,
		Collector:  caller,
		Stream:     stream,
		WeightKg:   weightKg,
		Location:   location,
		ImageHash:  imageHash,
		Status:     waste.CollectionPending,
		CreatedAt:  l.timestamp(),
		PickupTime: pickupTime,
		Recycler:   recycler,
	}

	if err := l.store.PutCollection(batch, collection); err != nil {
		return 0, err
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:   waste.EventCollectionCreated,
		Time:   collection.CreatedAt,
		Actor:  caller,
		Entity: id,
		Stream: stream,
		Amount: weightKg,
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
		return 0, fmt.Errorf("commit create collection: %w", err)
	}

	l.log.Info().
		Uint64("collection", id).
		Str("collector", caller.String()).
		Str("stream", stream.String()).
		Uint64("weight_kg", weightKg).
		Msg("collection created")
	l.notifier.CollectionStatusChanged(collection)
	return id, nil
}

// VerifyCollection settles a pending collection. Accepting computes the
// reward and carbon offset from the current rate tables and pays the
// collector from the contract account; the transfer and the state change
// commit together or not at all. Rejecting applies a reputation penalty.
//
// A pre-bound collection can only be verified by its recycler. Verifying
// an unbound collection binds it to the caller.
func (l *Ledger) VerifyCollection(caller waste.Address, id uint64, accept bool, quality waste.Quality) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	verifier, err := l.requireRole(caller, waste.RoleRecycler)
	if err != nil {
		return err
	}
	if !verifier.Verified {
		return fmt.Errorf("%w: recycler is not verified", ErrUnauthorized)
	}

	collection, err := l.store.GetCollection(id)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if collection.Status != waste.CollectionPending {
		return ErrAlreadyVerified
	}
	if !collection.Recycler.IsZero() && collection.Recycler != caller {
		return fmt.Errorf("%w: collection is bound to %s", ErrUnauthorized, collection.Recycler)
	}

	collector, err := l.store.GetUser(collection.Collector)
	if err != nil {
		return err
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	collection.Recycler = caller
	now := l.timestamp()

	var ev waste.Event
	if accept {
		if !quality.Valid() {
			return fmt.Errorf("%w: invalid quality grade", ErrInvalidInput)
		}

		rewardAmount, err := l.engine.Reward(collection.Stream, collection.WeightKg, quality)
		if err != nil {
			return fmt.Errorf("compute reward: %w", err)
		}
		carbon, err := l.engine.CarbonOffset(collection.Stream, collection.WeightKg, quality)
		if err != nil {
			return fmt.Errorf("compute carbon offset: %w", err)
		}

		// The payout is staged on the same batch as the status change.
		if err := l.token.Transfer(batch, ContractAccount, collection.Collector, rewardAmount); err != nil {
			if errors.Is(err, token.ErrInsufficientBalance) {
				return ErrInsufficientContractBalance
			}
			return err
		}

		collection.Status = waste.CollectionVerified
		collection.Quality = quality
		collection.RewardAmount = rewardAmount
		collection.CarbonOffset = carbon
		collector.Reputation = clampReputation(int64(collector.Reputation) + reputationBonusOnAccept)

		ev = waste.Event{
			Kind:    waste.EventCollectionVerified,
			Time:    now,
			Actor:   caller,
			Subject: collection.Collector,
			Entity:  id,
			Stream:  collection.Stream,
			Quality: quality,
			Amount:  collection.WeightKg,
			Value:   rewardAmount,
			Carbon:  carbon,
		}
	} else {
		collection.Status = waste.CollectionRejected
		collector.Reputation = clampReputation(int64(collector.Reputation) - reputationPenaltyOnReject)

		ev = waste.Event{
			Kind:    waste.EventCollectionRejected,
			Time:    now,
			Actor:   caller,
			Subject: collection.Collector,
			Entity:  id,
			Stream:  collection.Stream,
			Amount:  collection.WeightKg,
		}
	}

	if err := l.store.PutCollection(batch, collection); err != nil {
		return err
	}
	if err := l.store.PutUser(batch, collector); err != nil {
		return err
	}

	ev, err = l.appendEvent(batch, ev)
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
		return fmt.Errorf("commit verify collection: %w", err)
	}

	l.log.Info().
		Uint64("collection", id).
		Bool("accepted", accept).
		Uint64("reward", collection.RewardAmount).
		Msg("collection verified")
	l.notifier.CollectionStatusChanged(collection)
	return nil
}

// GetCollectionDetails returns a collection by id.
func (l *Ledger) GetCollectionDetails(id uint64) (waste.Collection, error) {
	c, err := l.store.GetCollection(id)
	if errors.Is(err, store.ErrCollectionNotFound) {
		return waste.Collection{}, ErrNotFound
	}
	return c, err
}
