package ledger

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/africycle/africycle/internal/reward"
	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/token"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db/pebble"
)

var (
	adminAddr     = waste.Address{0x01}
	collectorAddr = waste.Address{0x02}
	recyclerAddr  = waste.Address{0x03}
	partnerAddr   = waste.Address{0x04}
	strangerAddr  = waste.Address{0x05}
)

type fixture struct {
	t      *testing.T
	ledger *Ledger
	store  *store.Store
	book   *token.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	kv, err := pebble.NewKVStore()
	require.NoError(t, err)

	s := store.New(kv)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	book := token.NewBook(kv)
	engine := reward.NewEngine(reward.DefaultTables())

	l := New(s, book, engine, Config{
		Admin:  adminAddr,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	return &fixture{t: t, ledger: l, store: s, book: book}
}

func (f *fixture) registerVerified(addr waste.Address, role waste.Role, name string) {
	f.t.Helper()
	require.NoError(f.t, f.ledger.Register(addr, role, name, "Lagos", "user@example.com"))
	require.NoError(f.t, f.ledger.VerifyUser(adminAddr, addr))
}

func (f *fixture) fundContract(amount uint64) {
	f.t.Helper()
	require.NoError(f.t, f.ledger.FundContract(adminAddr, amount))
}

// mintTo credits a wallet directly, standing in for an external token
// deposit by a buyer.
func (f *fixture) mintTo(addr waste.Address, amount uint64) {
	f.t.Helper()
	batch := f.store.NewBatch()
	defer batch.Close()
	require.NoError(f.t, f.book.Mint(batch, addr, amount))
	require.NoError(f.t, batch.Commit())
}

// verifiedCollection creates a collection and has the recycler accept it.
// The contract must already be funded.
func (f *fixture) verifiedCollection(
	collector, recycler waste.Address,
	stream waste.Stream,
	weightKg uint64,
	quality waste.Quality,
) uint64 {
	f.t.Helper()
	id, err := f.ledger.CreateCollection(collector, stream, weightKg, "Ikeja", waste.Hash{}, 0, waste.ZeroAddress)
	require.NoError(f.t, err)
	require.NoError(f.t, f.ledger.VerifyCollection(recycler, id, true, quality))
	return id
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ledger.Register(collectorAddr, waste.RoleCollector, "Ada", "Lagos", ""))

	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, waste.RoleCollector, u.Role)
	require.Equal(t, "Ada", u.Name)
	require.False(t, u.Verified)
	require.Equal(t, uint16(waste.InitialReputation), u.Reputation)

	stats, err := f.ledger.GetPlatformStats()
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.TotalUsers)
	require.Equal(t, uint64(1), stats.ActiveCollectors)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ledger.Register(collectorAddr, waste.RoleCollector, "Ada", "", ""))
	err := f.ledger.Register(collectorAddr, waste.RoleRecycler, "Ada", "", "")
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	// The original role survives.
	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, waste.RoleCollector, u.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	err := f.ledger.Register(collectorAddr, waste.RoleAdmin, "Ada", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	err = f.ledger.Register(collectorAddr, waste.RoleCollector, "", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	err = f.ledger.Register(waste.ZeroAddress, waste.RoleCollector, "Ada", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyUser(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Register(collectorAddr, waste.RoleCollector, "Ada", "", ""))

	require.ErrorIs(t, f.ledger.VerifyUser(strangerAddr, collectorAddr), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.VerifyUser(adminAddr, strangerAddr), ErrNotFound)

	require.NoError(t, f.ledger.VerifyUser(adminAddr, collectorAddr))
	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.True(t, u.Verified)
}

func TestUpdateReputation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ledger.Register(collectorAddr, waste.RoleCollector, "Ada", "", ""))

	require.ErrorIs(t, f.ledger.UpdateReputation(strangerAddr, collectorAddr, 700, "audit"), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.UpdateReputation(adminAddr, collectorAddr, waste.MaxReputation+1, "audit"), ErrInvalidRange)
	require.ErrorIs(t, f.ledger.UpdateReputation(adminAddr, strangerAddr, 700, "audit"), ErrNotFound)

	require.NoError(t, f.ledger.UpdateReputation(adminAddr, collectorAddr, 700, "audit"))
	u, err := f.ledger.GetUserProfile(collectorAddr)
	require.NoError(t, err)
	require.Equal(t, uint16(700), u.Reputation)
}

func TestGetUserProfileUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.GetUserProfile(strangerAddr)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRoleStats(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(collectorAddr, waste.RoleCollector, "Ada")
	f.registerVerified(recyclerAddr, waste.RoleRecycler, "Eco")

	_, err := f.ledger.GetCollectorStats(collectorAddr)
	require.NoError(t, err)

	_, err = f.ledger.GetCollectorStats(recyclerAddr)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.GetRecyclerStats(strangerAddr)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFundContract(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.ledger.FundContract(strangerAddr, 1000), ErrUnauthorized)
	require.ErrorIs(t, f.ledger.FundContract(adminAddr, 0), ErrInvalidInput)

	require.NoError(t, f.ledger.FundContract(adminAddr, 1000))
	require.NoError(t, f.ledger.FundContract(adminAddr, 500))

	balance, err := f.ledger.GetContractTokenBalance()
	require.NoError(t, err)
	require.Equal(t, uint64(1500), balance)
}
