package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommit(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)
	defer store.Close()

	batch := store.NewBatch()
	defer batch.Close()

	err = batch.Put([]byte("key-1"), []byte("value-1"))
	require.NoError(t, err)
	err = batch.Put([]byte("key-2"), []byte("value-2"))
	require.NoError(t, err)

	// Nothing visible before commit
	_, err = store.Get([]byte("key-1"))
	assert.ErrorIs(t, err, ErrNotFound)

	err = batch.Commit()
	require.NoError(t, err)

	// Both writes visible after commit
	v1, err := store.Get([]byte("key-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value-1"), v1)

	v2, err := store.Get([]byte("key-2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value-2"), v2)
}

func TestBatchDiscard(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)
	defer store.Close()

	batch := store.NewBatch()
	err = batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, err)

	// Close without commit discards the staged writes
	err = batch.Close()
	require.NoError(t, err)

	_, err = store.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchDone(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)
	defer store.Close()

	batch := store.NewBatch()
	err = batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, err)
	err = batch.Commit()
	require.NoError(t, err)

	// Operations after commit fail
	err = batch.Put([]byte("other"), []byte("value"))
	assert.ErrorIs(t, err, ErrBatchDone)
	err = batch.Delete([]byte("key"))
	assert.ErrorIs(t, err, ErrBatchDone)
	err = batch.Commit()
	assert.ErrorIs(t, err, ErrBatchDone)

	// Close after commit is a no-op
	err = batch.Close()
	assert.NoError(t, err)
}

func TestBatchDelete(t *testing.T) {
	store, err := NewKVStore()
	require.NoError(t, err)
	defer store.Close()

	err = store.Put([]byte("key"), []byte("value"))
	require.NoError(t, err)

	batch := store.NewBatch()
	defer batch.Close()

	err = batch.Delete([]byte("key"))
	require.NoError(t, err)
	err = batch.Commit()
	require.NoError(t, err)

	_, err = store.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrNotFound)
}
