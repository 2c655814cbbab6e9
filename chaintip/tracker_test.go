package chaintip

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/event"
	"github.com/gxplatform/txindexer/indexer"
	"github.com/gxplatform/txindexer/storage"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.OpenBlobStore(storage.BlobConfig{Engine: storage.BlobEngineMemory})
	require.NoError(t, err)
	store, err := storage.Open(filepath.Join(dir, "test.db"), blobs)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ix, err := indexer.New(store, event.Nop{})
	require.NoError(t, err)
	return New(ix)
}

func txid(b byte) common.Txid {
	var t common.Txid
	t[0] = b
	return t
}

// TestS6ReorgRewind is spec §8's S6: transactions at heights 98, 99,
// 100 (no dependency edges between them); rewinding to 98 deletes 99
// and 100, both being above height 98, and leaves only the height-98
// record persisted.
func TestS6ReorgRewind(t *testing.T) {
	tip := newTestTracker(t)
	ix := tip.ix
	h98, h99, h100 := txid(98), txid(99), txid(100)

	require.NoError(t, ix.AddNew(h98, storage.Height(98)))
	require.NoError(t, ix.AddNew(h99, storage.Height(99)))
	require.NoError(t, ix.AddNew(h100, storage.Height(100)))
	require.NoError(t, ix.StoreParsedNonExecutable(h98, []byte("a"), nil, nil))
	require.NoError(t, ix.StoreParsedNonExecutable(h99, []byte("b"), nil, nil))
	require.NoError(t, ix.StoreParsedNonExecutable(h100, []byte("c"), nil, nil))

	above, err := ix.Store().GetTransactionsAboveHeight(98)
	require.NoError(t, err)
	require.ElementsMatch(t, []common.Txid{h99, h100}, above)

	require.NoError(t, tip.Rewind(98))
	require.NoError(t, tip.Advance(98, "hash-at-98"))

	rec98, err := ix.Store().GetTransaction(h98)
	require.NoError(t, err)
	require.NotNil(t, rec98)

	rec99, err := ix.Store().GetTransaction(h99)
	require.NoError(t, err)
	require.Nil(t, rec99)

	rec100, err := ix.Store().GetTransaction(h100)
	require.NoError(t, err)
	require.Nil(t, rec100)

	height, ok, err := tip.Height()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(98), height)
}

func TestIsReorgComparesAgainstCurrentTip(t *testing.T) {
	tip := newTestTracker(t)
	require.NoError(t, tip.Advance(10, "hash-10"))

	isReorg, err := tip.IsReorg("hash-10")
	require.NoError(t, err)
	require.False(t, isReorg)

	isReorg, err = tip.IsReorg("some-other-hash")
	require.NoError(t, err)
	require.True(t, isReorg)
}

func TestEvictMempoolDeletesStaleEntries(t *testing.T) {
	tip := newTestTracker(t)
	ix := tip.ix
	stale := txid(1)
	require.NoError(t, ix.AddNew(stale, storage.HeightMempool))

	require.NoError(t, tip.EvictMempool(time.Now().Add(time.Hour)))

	rec, err := ix.Store().GetTransaction(stale)
	require.NoError(t, err)
	require.Nil(t, rec)
}
