package trust

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/graph"
	"github.com/gxplatform/txindexer/storage"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.OpenBlobStore(storage.BlobConfig{Engine: storage.BlobEngineMemory})
	require.NoError(t, err)
	store, err := storage.Open(filepath.Join(dir, "test.db"), blobs)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func txid(b byte) common.Txid {
	var t common.Txid
	t[0] = b
	return t
}

func TestAddTrustPersistsAndMirrors(t *testing.T) {
	store := newTestStore(t)
	r, err := Load(store)
	require.NoError(t, err)

	a := txid(1)
	require.False(t, r.IsTrusted(a))

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, r.AddTrust(tx, a))
	require.NoError(t, tx.Commit())

	require.True(t, r.IsTrusted(a))

	reloaded, err := Load(store)
	require.NoError(t, err)
	require.True(t, reloaded.IsTrusted(a), "trust must survive a registry reload from Store")
}

func TestBanIsIndependentOfTrust(t *testing.T) {
	store := newTestStore(t)
	r, err := Load(store)
	require.NoError(t, err)

	a := txid(1)
	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, r.AddTrust(tx, a))
	require.NoError(t, r.AddBan(tx, a))
	require.NoError(t, tx.Commit())

	require.True(t, r.IsTrusted(a))
	require.True(t, r.IsBanned(a), "ban and trust are independent sets")
}

func TestTrustClosureWalksUntrustedCodeBearingAncestorsOnly(t *testing.T) {
	store := newTestStore(t)
	r, err := Load(store)
	require.NoError(t, err)

	g := graph.New(r, nil)
	a, b, c, d := txid(1), txid(2), txid(3), txid(4)
	g.Add(a, true, true)  // untrusted, code-bearing: should be in closure
	g.Add(b, true, false) // no code: excluded even though untrusted
	g.Add(c, true, true)  // code-bearing but already trusted: excluded
	g.Add(d, true, true)  // the txid closure is computed for

	g.AddEdge(a, d)
	g.AddEdge(b, d)
	g.AddEdge(c, d)

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, r.AddTrust(tx, c))
	require.NoError(t, tx.Commit())

	closure := r.TrustClosure(g, d)
	require.ElementsMatch(t, []common.Txid{a}, closure)
}

func TestGetAllUntrustedOnlyCountsCodeBearingUntrustedNodes(t *testing.T) {
	store := newTestStore(t)
	r, err := Load(store)
	require.NoError(t, err)

	g := graph.New(r, nil)
	a, b := txid(1), txid(2)
	g.Add(a, true, true)
	g.Add(b, true, false)

	require.ElementsMatch(t, []common.Txid{a}, r.GetAllUntrusted(g))
}
