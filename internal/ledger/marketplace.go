package ledger

import (
	"errors"
	"fmt"

	"github.com/africycle/africycle/internal/safemath"
	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/token"
	"github.com/africycle/africycle/internal/waste"
)

// CreateListing offers processed material for sale. The quantity is
// reserved against the recycler's available inventory at creation, not at
// sale, so concurrent listings can never oversell. Reserved quantity
// returns only when a listing is cancelled.
func (l *Ledger) CreateListing(
	caller waste.Address,
	stream waste.Stream,
	quantity, pricePerUnit uint64,
	quality waste.Quality,
	description string,
) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireRole(caller, waste.RoleRecycler); err != nil {
		return 0, err
	}
	if !stream.Valid() {
		return 0, fmt.Errorf("%w: invalid waste stream", ErrInvalidInput)
	}
	if !quality.Valid() {
		return 0, fmt.Errorf("%w: invalid quality grade", ErrInvalidInput)
	}
	if quantity == 0 {
		return 0, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	}
	if pricePerUnit == 0 {
		return 0, fmt.Errorf("%w: price per unit must be greater than zero", ErrInvalidInput)
	}

	stats, err := l.store.GetUserStats(caller)
	if err != nil {
		return 0, err
	}
	if available := stats.AvailableInventory(stream); quantity > available {
		return 0, fmt.Errorf("%w: have %d kg of %s available, want %d", ErrInsufficientInventory, available, stream, quantity)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	id, err := l.store.NextID(batch, store.SeqListing)
	if err != nil {
		return 0, err
	}

	listing := waste.Listing{
		ID:           id,
		Recycler:     caller,
		Stream:       stream,
		Quantity:     quantity,
		Remaining:    quantity,
		PricePerUnit: pricePerUnit,
		Quality:      quality,
		Description:  description,
		Status:       waste.ListingActive,
		CreatedAt:    l.timestamp(),
	}
	if err := l.store.PutListing(batch, listing); err != nil {
		return 0, err
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:    waste.EventListingCreated,
		Time:    listing.CreatedAt,
		Actor:   caller,
		Entity:  id,
		Stream:  stream,
		Quality: quality,
		Amount:  quantity,
		Value:   pricePerUnit,
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
		return 0, fmt.Errorf("commit create listing: %w", err)
	}

	l.log.Info().
		Uint64("listing", id).
		Str("recycler", caller.String()).
		Str("stream", stream.String()).
		Uint64("quantity", quantity).
		Uint64("price_per_unit", pricePerUnit).
		Msg("listing created")
	return id, nil
}

// PurchaseListing buys quantity units from an active listing. The buyer
// pays quantity times pricePerUnit to the recycler; payment and inventory
// consumption commit together. The listing becomes SOLD when its
// remaining quantity reaches zero.
func (l *Ledger) PurchaseListing(caller waste.Address, id, quantity uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.requireUser(caller); err != nil {
		return err
	}

	listing, err := l.store.GetListing(id)
	if errors.Is(err, store.ErrListingNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	switch listing.Status {
	case waste.ListingActive:
	case waste.ListingSold:
		return ErrAlreadySold
	default:
		return fmt.Errorf("%w: listing is %s", ErrInvalidTransition, listing.Status)
	}
	if caller == listing.Recycler {
		return fmt.Errorf("%w: cannot purchase own listing", ErrInvalidInput)
	}
	if quantity == 0 || quantity > listing.Remaining {
		return fmt.Errorf("%w: quantity %d, listing has %d remaining", ErrInvalidInput, quantity, listing.Remaining)
	}

	total, ok := safemath.Mul64(quantity, listing.PricePerUnit)
	if !ok {
		return fmt.Errorf("%w: price overflow", ErrInvalidInput)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	if err := l.token.Transfer(batch, caller, listing.Recycler, total); err != nil {
		if errors.Is(err, token.ErrInsufficientBalance) {
			return ErrInsufficientFunds
		}
		return err
	}

	listing.Remaining -= quantity
	soldOut := uint64(0)
	if listing.Remaining == 0 {
		listing.Status = waste.ListingSold
		soldOut = 1
	}
	if err := l.store.PutListing(batch, listing); err != nil {
		return err
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:    waste.EventListingPurchased,
		Time:    l.timestamp(),
		Actor:   caller,
		Subject: listing.Recycler,
		Entity:  id,
		Stream:  listing.Stream,
		Amount:  quantity,
		Value:   total,
		Aux:     soldOut,
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
		return fmt.Errorf("commit purchase: %w", err)
	}

	l.log.Info().
		Uint64("listing", id).
		Str("buyer", caller.String()).
		Uint64("quantity", quantity).
		Uint64("total", total).
		Msg("listing purchased")
	return nil
}

// CancelListing withdraws an active listing and releases its remaining
// reserved inventory back to available. Owner only.
func (l *Ledger) CancelListing(caller waste.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, err := l.store.GetListing(id)
	if errors.Is(err, store.ErrListingNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if listing.Recycler != caller {
		return ErrNotOwner
	}
	switch listing.Status {
	case waste.ListingActive:
	case waste.ListingSold:
		return ErrAlreadySold
	default:
		return fmt.Errorf("%w: listing is %s", ErrInvalidTransition, listing.Status)
	}

	batch := l.store.NewBatch()
	defer batch.Close()

	released := listing.Remaining
	listing.Status = waste.ListingCancelled
	if err := l.store.PutListing(batch, listing); err != nil {
		return err
	}

	ev, err := l.appendEvent(batch, waste.Event{
		Kind:   waste.EventListingCancelled,
		Time:   l.timestamp(),
		Actor:  caller,
		Entity: id,
		Stream: listing.Stream,
		Amount: released,
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
		return fmt.Errorf("commit cancel listing: %w", err)
	}

	l.log.Info().Uint64("listing", id).Uint64("released", released).Msg("listing cancelled")
	return nil
}

// GetListingDetails returns a listing by id.
func (l *Ledger) GetListingDetails(id uint64) (waste.Listing, error) {
	listing, err := l.store.GetListing(id)
	if errors.Is(err, store.ErrListingNotFound) {
		return waste.Listing{}, ErrNotFound
	}
	return listing, err
}
