package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/africycle/africycle/internal/waste"
)

func TestCreateCollection(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")

	id, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "Ikeja", waste.Hash{0xaa}, 1_700_086_400, waste.ZeroAddress)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	c, err := f.ledger.GetCollectionDetails(id)
	require.NoError(t, err)
	require.Equal(t, waste.CollectionPending, c.Status)
	require.Equal(t, collectorAddr, c.Collector)
	require.Equal(t, uint64(100), c.WeightKg)
	require.True(t, c.Recycler.IsZero())

	stats, err := f.ledger.GetUserStats(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.PendingVerifications)
}

func TestCreateCollectionRequiresVerifiedCollector(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.ErrorIs(t, err, ErrNotRegistered)

	require.NoError(t, f.ledger.Register(collectorAddr, waste.RoleCollector, "Ada", "", ""))
	_, err = f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.ErrorIs(t, err, ErrUnauthorized)

	f.registerVerified(recyclerAddr, waste.RoleRecycler, "Eco")
	_, err = f.ledger.CreateCollection(recyclerAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateCollectionValidation(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")

	_, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 0, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.ErrorIs(t, err, ErrInvalidWeight)

	_, err = f.ledger.CreateCollection(collectorAddr, waste.Stream(99), 100, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.ErrorIs(t, err, ErrInvalidInput)

	// Pre-binding to an unregistered or non-recycler address fails.
	_, err = f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, strangerAddr)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, collectorAddr)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyCollectionAccept(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")
	f.registerVerified(recyclerAddr, waste.RoleRecycler, "Eco")
	f.fundContract(1_000_000)

	id, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "Ikeja", waste.Hash{}, 0, waste.ZeroAddress)
	require.NoError(t, err)
	require.NoError(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.QualityHigh))

	// 100 kg * 500 base * 12000 high multiplier / 10000 scale.
	const wantReward = 60_000
	// 100 kg * 1500 carbon * 11000 high carbon multiplier / 10000 scale.
	const wantCarbon = 165_000

	c, err := f.ledger.GetCollectionDetails(id)
	require.NoError(t, err)
	require.Equal(t, waste.CollectionVerified, c.Status)
	require.Equal(t, waste.QualityHigh, c.Quality)
	require.Equal(t, recyclerAddr, c.Recycler)
	require.Equal(t, uint64(wantReward), c.RewardAmount)
	require.Equal(t, uint64(wantCarbon), c.CarbonOffset)

	// The payout left the contract account and landed with the collector.
	balance, err := f.book.BalanceOf(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(wantReward), balance)

	contractBalance, err := f.ledger.GetContractTokenBalance()
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000-wantReward), contractBalance)

	// Acceptance nudges the collector's reputation up.
	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint16(waste.InitialReputation+reputationBonusOnAccept), u.Reputation)

	stats, err := f.ledger.GetUserStats(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(100), stats.TotalCollectedKg)
	require.Equal(t, uint64(wantReward), stats.TotalEarnings)
	require.Equal(t, uint64(wantCarbon), stats.TotalCarbonOffset)
	require.Zero(t, stats.PendingVerifications)
}

func TestVerifyCollectionReject(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")
	f.registerVerified(recyclerAddr, waste.RoleRecycler, "Eco")

	id, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.NoError(t, err)
	require.NoError(t, f.ledger.VerifyCollection(recyclerAddr, id, false, 0))

	c, err := f.ledger.GetCollectionDetails(id)
	require.NoError(t, err)
	require.Equal(t, waste.CollectionRejected, c.Status)
	require.Zero(t, c.RewardAmount)

	// No payout on rejection.
	balance, err := f.book.BalanceOf(collectorAddr)
	require.NoError(t, err)
	require.Zero(t, balance)

	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint16(waste.InitialReputation-reputationPenaltyOnReject), u.Reputation)

	// A settled collection cannot be verified again.
	require.ErrorIs(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.QualityHigh), ErrAlreadyVerified)
}

func TestVerifyCollectionBoundRecycler(t *testing.T) {
	f := newFixture(t)
	other := waste.Address{0x06}
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")
	f.registerVerified(recyclerAddr, waste.RoleRecycler, "Eco")
	f.registerVerified(other, waste.RoleRecycler, "Rival")
	f.fundContract(1_000_000)

	id, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 10, "", waste.Hash{}, 0, recyclerAddr)
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.VerifyCollection(other, id, true, waste.QualityLow), ErrUnauthorized)
	require.NoError(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.QualityLow))
}

func TestVerifyCollectionAuthorization(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")
	require.NoError(t, f.ledger.Register(recyclerAddr, waste.RoleRecycler, "Eco", "", ""))

	id, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 10, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.NoError(t, err)

	// Unverified recycler, wrong role, unknown collection.
	require.ErrorIs(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.QualityLow), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.VerifyCollection(collectorAddr, id, true, waste.QualityLow), ErrUnauthorized)

	require.NoError(t, f.ledger.VerifyUser(adminAddr, recyclerAddr))
	require.ErrorIs(t, f.ledger.VerifyCollection(recyclerAddr, 999, true, waste.QualityLow), ErrNotFound)
	require.ErrorIs(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.Quality(99)), ErrInvalidInput)
}

// An underfunded contract must leave no trace: the collection stays
// pending, no tokens move, no counters change.
func TestVerifyCollectionUnderfundedContractIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")
	f.registerVerified(recyclerAddr, waste.RoleRecycler, "Eco")

	id, err := f.ledger.CreateCollection(collectorAddr, waste.StreamPlastic, 100, "", waste.Hash{}, 0, waste.ZeroAddress)
	require.NoError(t, err)

	before, err := f.ledger.GetPlatformStats()
	require.NoError(t, err)

	require.ErrorIs(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.QualityHigh), ErrInsufficientContractBalance)

	c, err := f.ledger.GetCollectionDetails(id)
	require.NoError(t, err)
	require.Equal(t, waste.CollectionPending, c.Status)
	require.True(t, c.Recycler.IsZero())

	balance, err := f.book.BalanceOf(collectorAddr)
	require.NoError(t, err)
	require.Zero(t, balance)

	after, err := f.ledger.GetPlatformStats()
	require.NoError(t, err)
	require.Equal(t, before, after)

	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint16(waste.InitialReputation), u.Reputation)

	// Funding the contract lets the same verification succeed.
	f.fundContract(1_000_000)
	require.NoError(t, f.ledger.VerifyCollection(recyclerAddr, id, true, waste.QualityHigh))
}
