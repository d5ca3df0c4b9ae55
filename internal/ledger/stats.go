package ledger

import (
	"errors"
	"fmt"

	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db"
)

// statsDelta accumulates counter updates for one operation. The live path
// and event replay share applyEvent, so the aggregates are derived
// mechanically from the event rather than hand-maintained per call site.
type statsDelta struct {
	platform waste.PlatformStats
	users    map[waste.Address]*waste.UserStats
	load     func(waste.Address) (waste.UserStats, error)
}

func (l *Ledger) newStatsDelta() (*statsDelta, error) {
	platform, err := l.store.GetPlatformStats()
	if err != nil {
		return nil, err
	}
	return &statsDelta{
		platform: platform,
		users:    make(map[waste.Address]*waste.UserStats),
		load:     l.store.GetUserStats,
	}, nil
}

func (d *statsDelta) user(addr waste.Address) (*waste.UserStats, error) {
	if st, ok := d.users[addr]; ok {
		return st, nil
	}
	loaded, err := d.load(addr)
	if err != nil {
		return nil, err
	}
	st := &loaded
	d.users[addr] = st
	return st, nil
}

// stage writes the platform record and every touched user record onto the
// batch.
func (d *statsDelta) stage(s *store.Store, batch db.Writer) error {
	if err := s.PutPlatformStats(batch, d.platform); err != nil {
		return err
	}
	for addr, st := range d.users {
		if err := s.PutUserStats(batch, addr, *st); err != nil {
			return err
		}
	}
	return nil
}

// apply folds one event into the counters.
func (d *statsDelta) apply(ev waste.Event) error {
	switch ev.Kind {
	case waste.EventUserRegistered:
		d.platform.TotalUsers++
		switch waste.Role(ev.Aux) {
		case waste.RoleCollector:
			d.platform.ActiveCollectors++
		case waste.RoleRecycler:
			d.platform.ActiveRecyclers++
		case waste.RoleCorporatePartner:
			d.platform.CorporatePartners++
		}

	case waste.EventCollectionCreated:
		collector, err := d.user(ev.Actor)
		if err != nil {
			return err
		}
		collector.PendingVerifications++
		d.platform.TotalCollections++
		d.platform.PendingVerifications++

	case waste.EventCollectionVerified:
		collector, err := d.user(ev.Subject)
		if err != nil {
			return err
		}
		collector.PendingVerifications--
		collector.VerifiedCollections++
		collector.TotalCollectedKg += ev.Amount
		collector.CollectedByStream[ev.Stream] += ev.Amount
		collector.TotalEarnings += ev.Value
		collector.TotalCarbonOffset += ev.Carbon

		verifier, err := d.user(ev.Actor)
		if err != nil {
			return err
		}
		verifier.CollectionsVerified++

		d.platform.PendingVerifications--
		d.platform.VerifiedCollections++
		d.platform.TotalWeightKg += ev.Amount
		d.platform.CollectedByStream[ev.Stream] += ev.Amount
		d.platform.TotalRewardsPaid += ev.Value
		d.platform.TotalCarbonOffset += ev.Carbon

	case waste.EventCollectionRejected:
		collector, err := d.user(ev.Subject)
		if err != nil {
			return err
		}
		collector.PendingVerifications--
		collector.RejectedCollections++
		d.platform.PendingVerifications--
		d.platform.RejectedCollections++

	case waste.EventBatchCreated:
		recycler, err := d.user(ev.Actor)
		if err != nil {
			return err
		}
		recycler.BatchesCreated++
		d.platform.TotalBatches++
		d.platform.ActiveBatches++

	case waste.EventBatchCompleted:
		recycler, err := d.user(ev.Actor)
		if err != nil {
			return err
		}
		recycler.BatchesCompleted++
		recycler.InventoryByStream[ev.Stream] += ev.Amount
		d.platform.ActiveBatches--
		d.platform.CompletedBatches++
		d.platform.ProcessedByStream[ev.Stream] += ev.Amount

	case waste.EventBatchCancelled:
		d.platform.ActiveBatches--

	case waste.EventListingCreated:
		recycler, err := d.user(ev.Actor)
		if err != nil {
			return err
		}
		recycler.ReservedByStream[ev.Stream] += ev.Amount
		recycler.ActiveListings++
		d.platform.TotalListings++
		d.platform.ActiveListings++

	case waste.EventListingPurchased:
		recycler, err := d.user(ev.Subject)
		if err != nil {
			return err
		}
		recycler.SoldByStream[ev.Stream] += ev.Amount
		recycler.SalesVolume += ev.Value
		d.platform.TotalSalesVolume += ev.Value
		if ev.Aux == 1 { // listing fully sold
			recycler.ActiveListings--
			d.platform.ActiveListings--
		}

	case waste.EventListingCancelled:
		recycler, err := d.user(ev.Actor)
		if err != nil {
			return err
		}
		recycler.ReservedByStream[ev.Stream] -= ev.Amount
		recycler.ActiveListings--
		d.platform.ActiveListings--

	case waste.EventUserVerified, waste.EventReputationUpdated,
		waste.EventRateUpdated, waste.EventContractFunded:
		// No counter changes.

	default:
		return fmt.Errorf("apply event: unknown kind %d", ev.Kind)
	}
	return nil
}

// ReplayStats folds the full event log from scratch. The result must
// always equal the live counters; drift is a bug.
func ReplayStats(s *store.Store) (waste.PlatformStats, map[waste.Address]waste.UserStats, error) {
	d := &statsDelta{
		users: make(map[waste.Address]*waste.UserStats),
		load: func(waste.Address) (waste.UserStats, error) {
			return waste.UserStats{}, nil
		},
	}

	err := s.ForEachEvent(func(ev waste.Event) error {
		return d.apply(ev)
	})
	if err != nil {
		return waste.PlatformStats{}, nil, err
	}

	users := make(map[waste.Address]waste.UserStats, len(d.users))
	for addr, st := range d.users {
		users[addr] = *st
	}
	return d.platform, users, nil
}

// ContractStats is the point-in-time platform snapshot served to
// dashboards, including the reward-pool balance.
type ContractStats struct {
	waste.PlatformStats
	TokenBalance uint64
}

// GetPlatformStats returns the platform-wide counters.
func (l *Ledger) GetPlatformStats() (waste.PlatformStats, error) {
	return l.store.GetPlatformStats()
}

// GetContractStats returns the platform counters plus the contract's
// token balance.
func (l *Ledger) GetContractStats() (ContractStats, error) {
	platform, err := l.store.GetPlatformStats()
	if err != nil {
		return ContractStats{}, err
	}
	balance, err := l.token.BalanceOf(ContractAccount)
	if err != nil {
		return ContractStats{}, err
	}
	return ContractStats{PlatformStats: platform, TokenBalance: balance}, nil
}

// GetUserStats returns the per-user counters; unknown addresses hold the
// zero record.
func (l *Ledger) GetUserStats(addr waste.Address) (waste.UserStats, error) {
	return l.store.GetUserStats(addr)
}

// GetCollectorStats returns the counters for a registered collector.
func (l *Ledger) GetCollectorStats(addr waste.Address) (waste.UserStats, error) {
	return l.roleStats(addr, waste.RoleCollector)
}

// GetRecyclerStats returns the counters for a registered recycler.
func (l *Ledger) GetRecyclerStats(addr waste.Address) (waste.UserStats, error) {
	return l.roleStats(addr, waste.RoleRecycler)
}

func (l *Ledger) roleStats(addr waste.Address, role waste.Role) (waste.UserStats, error) {
	u, err := l.store.GetUser(addr)
	if errors.Is(err, store.ErrUserNotFound) {
		return waste.UserStats{}, ErrNotFound
	}
	if err != nil {
		return waste.UserStats{}, err
	}
	if u.Role != role {
		return waste.UserStats{}, ErrUnauthorized
	}
	return l.store.GetUserStats(addr)
}

// GetContractTokenBalance returns the reward-pool balance.
func (l *Ledger) GetContractTokenBalance() (uint64, error) {
	return l.token.BalanceOf(ContractAccount)
}
