package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
)

func newTestStoreForUnspent(t *testing.T) Store {
	t.Helper()
	dir := t.TempDir()
	blobs, err := OpenBlobStore(BlobConfig{Engine: BlobEngineMemory})
	require.NoError(t, err)
	store, err := Open(filepath.Join(dir, "test.db"), blobs)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUnspentIndexLocalTierRoundtrip(t *testing.T) {
	store := newTestStoreForUnspent(t)
	loc := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20_o0"

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.RecordUnspentOutput(loc))
	require.NoError(t, tx.Commit())

	idx, err := NewUnspentIndex(store, UnspentIndexConfig{})
	require.NoError(t, err)

	unspent, err := idx.IsUnspent(loc)
	require.NoError(t, err)
	require.True(t, unspent)

	spender := common.MustParseTxid("202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f")
	idx.MarkSpent(loc, spender)

	unspent, err = idx.IsUnspent(loc)
	require.NoError(t, err)
	require.False(t, unspent, "MarkSpent must be visible to the next read without a store round trip")
}

func TestUnspentIndexFallsThroughToStoreOnMiss(t *testing.T) {
	store := newTestStoreForUnspent(t)
	loc := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20_o1"
	spender := common.MustParseTxid("202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f")

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.RecordUnspentOutput(loc))
	require.NoError(t, tx.SetSpend(loc, spender))
	require.NoError(t, tx.Commit())

	idx, err := NewUnspentIndex(store, UnspentIndexConfig{})
	require.NoError(t, err)

	unspent, err := idx.IsUnspent(loc)
	require.NoError(t, err)
	require.False(t, unspent, "a location already spent in Store before the cache ever saw it must read as spent")
}

func TestUnspentIndexMarkUnspentUndoesASpend(t *testing.T) {
	store := newTestStoreForUnspent(t)
	loc := "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20_o2"
	spender := common.MustParseTxid("202122232425262728292a2b2c2d2e2f303132333435363738393a3b3c3d3e3f")

	idx, err := NewUnspentIndex(store, UnspentIndexConfig{})
	require.NoError(t, err)

	idx.MarkSpent(loc, spender)
	idx.MarkUnspent(loc)

	unspent, err := idx.IsUnspent(loc)
	require.NoError(t, err)
	require.True(t, unspent, "reorg rewind's MarkUnspent must override the cached spent state")
}
