package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/africycle/africycle/internal/reward"
	"github.com/africycle/africycle/internal/testutils"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db/pebble"
)

func newTestStore(t *testing.T) *Store {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, kv.Close())
	})
	return New(kv)
}

func TestPutGetUser(t *testing.T) {
	s := newTestStore(t)

	expected := waste.User{
		Address:      testutils.RandomAddress(t),
		Role:         waste.RoleCollector,
		Name:         "Amina",
		Location:     "Lagos",
		Contact:      "amina@example.com",
		Reputation:   waste.InitialReputation,
		RegisteredAt: 1700000000,
	}

	batch := s.NewBatch()
	defer batch.Close()
	require.NoError(t, s.PutUser(batch, expected))
	require.NoError(t, batch.Commit())

	got, err := s.GetUser(expected.Address)
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	has, err := s.HasUser(expected.Address)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = s.GetUser(testutils.RandomAddress(t))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPutGetCollection(t *testing.T) {
	s := newTestStore(t)

	expected := waste.Collection{
		ID:        1,
		Collector: testutils.RandomAddress(t),
		Stream:    waste.StreamPlastic,
		WeightKg:  100,
		Location:  "Accra",
		ImageHash: testutils.RandomHash(t),
		Status:    waste.CollectionPending,
		CreatedAt: 1700000000,
	}

	batch := s.NewBatch()
	defer batch.Close()
	require.NoError(t, s.PutCollection(batch, expected))
	require.NoError(t, batch.Commit())

	got, err := s.GetCollection(1)
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	_, err = s.GetCollection(99)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestPutGetBatchAndListing(t *testing.T) {
	s := newTestStore(t)

	recycler := testutils.RandomAddress(t)
	b := waste.ProcessingBatch{
		ID:            3,
		Recycler:      recycler,
		Label:         "run-1",
		Stream:        waste.StreamMetal,
		Inputs:        []uint64{1, 2},
		InputWeightKg: 150,
		Status:        waste.BatchActive,
		CreatedAt:     1700000000,
	}
	l := waste.Listing{
		ID:           7,
		Recycler:     recycler,
		Stream:       waste.StreamMetal,
		Quantity:     100,
		Remaining:    100,
		PricePerUnit: 25,
		Quality:      waste.QualityHigh,
		Description:  "shredded metal",
		Status:       waste.ListingActive,
		CreatedAt:    1700000100,
	}

	batch := s.NewBatch()
	defer batch.Close()
	require.NoError(t, s.PutBatch(batch, b))
	require.NoError(t, s.PutListing(batch, l))
	require.NoError(t, batch.Commit())

	gotBatch, err := s.GetBatch(3)
	require.NoError(t, err)
	assert.Equal(t, b, gotBatch)

	gotListing, err := s.GetListing(7)
	require.NoError(t, err)
	assert.Equal(t, l, gotListing)

	_, err = s.GetBatch(99)
	assert.ErrorIs(t, err, ErrBatchNotFound)
	_, err = s.GetListing(99)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestSequences(t *testing.T) {
	s := newTestStore(t)

	for want := uint64(1); want <= 3; want++ {
		batch := s.NewBatch()
		id, err := s.NextID(batch, SeqCollection)
		require.NoError(t, err)
		assert.Equal(t, want, id)
		require.NoError(t, batch.Commit())
		require.NoError(t, batch.Close())
	}

	// Independent sequences do not interfere
	batch := s.NewBatch()
	defer batch.Close()
	id, err := s.NextID(batch, SeqListing)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestSequenceNotAdvancedWithoutCommit(t *testing.T) {
	s := newTestStore(t)

	batch := s.NewBatch()
	id, err := s.NextID(batch, SeqBatch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	// Discard the batch: the advance must not stick
	require.NoError(t, batch.Close())

	batch = s.NewBatch()
	defer batch.Close()
	id, err = s.NextID(batch, SeqBatch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestUserStatsZeroDefault(t *testing.T) {
	s := newTestStore(t)
	addr := testutils.RandomAddress(t)

	st, err := s.GetUserStats(addr)
	require.NoError(t, err)
	assert.Equal(t, waste.UserStats{}, st)

	st.TotalCollectedKg = 42
	batch := s.NewBatch()
	defer batch.Close()
	require.NoError(t, s.PutUserStats(batch, addr, st))
	require.NoError(t, batch.Commit())

	got, err := s.GetUserStats(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.TotalCollectedKg)
}

func TestEventLogOrderAndHead(t *testing.T) {
	s := newTestStore(t)

	head, err := s.EventHead()
	require.NoError(t, err)
	assert.True(t, head.IsZero())

	for seq := uint64(1); seq <= 3; seq++ {
		ev := waste.Event{
			Seq:    seq,
			Kind:   waste.EventCollectionCreated,
			Actor:  testutils.RandomAddress(t),
			Digest: testutils.RandomHash(t),
		}
		batch := s.NewBatch()
		require.NoError(t, s.AppendEvent(batch, ev))
		require.NoError(t, batch.Commit())
		require.NoError(t, batch.Close())

		got, err := s.EventHead()
		require.NoError(t, err)
		assert.Equal(t, ev.Digest, got)
	}

	var seqs []uint64
	require.NoError(t, s.ForEachEvent(func(ev waste.Event) error {
		seqs = append(seqs, ev.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3}, seqs)

	_, err = s.GetEvent(99)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRatesRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.GetRates()
	require.NoError(t, err)
	assert.False(t, found)

	tables := reward.DefaultTables()
	tables.BaseRate[waste.StreamPlastic] = 777

	batch := s.NewBatch()
	defer batch.Close()
	require.NoError(t, s.PutRates(batch, tables))
	require.NoError(t, batch.Commit())

	got, found, err := s.GetRates()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, tables, got)
}
