package indexer

import (
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/storage"
)

var dumper = spew.ConfigState{Indent: "    "}

// recordingSink captures every OnReadyToExecute fire in call order, the
// same shape the end-to-end scenarios of spec §8 assert against.
type recordingSink struct {
	ready []common.Txid
}

func (s *recordingSink) OnReadyToExecute(txid common.Txid) { s.ready = append(s.ready, txid) }
func (s *recordingSink) OnAddTransaction(common.Txid)      {}
func (s *recordingSink) OnDeleteTransaction(common.Txid)   {}
func (s *recordingSink) OnTrustTransaction(common.Txid)    {}
func (s *recordingSink) OnUntrustTransaction(common.Txid)  {}
func (s *recordingSink) OnBanTransaction(common.Txid)      {}
func (s *recordingSink) OnUnbanTransaction(common.Txid)    {}
func (s *recordingSink) OnUnindexTransaction(common.Txid)  {}

func newTestIndexer(t *testing.T) (*Indexer, *recordingSink) {
	t.Helper()
	dir := t.TempDir()

	blobs, err := storage.OpenBlobStore(storage.BlobConfig{Engine: storage.BlobEngineMemory})
	require.NoError(t, err)

	store, err := storage.Open(filepath.Join(dir, "test.db"), blobs)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sink := &recordingSink{}
	ix, err := New(store, sink)
	require.NoError(t, err)
	return ix, sink
}

func txid(b byte) common.Txid {
	var t common.Txid
	t[0] = b
	return t
}

func seedTrust(t *testing.T, ix *Indexer, txids ...common.Txid) {
	t.Helper()
	for _, id := range txids {
		tx, err := ix.store.Begin()
		require.NoError(t, err)
		require.NoError(t, ix.trust.AddTrust(tx, id))
		require.NoError(t, tx.Commit())
	}
}

// TestS1LinearChainAllTrusted is spec §8's S1: a seeded-trust two-node
// chain fires ready exactly once per node, in dependency order.
func TestS1LinearChainAllTrusted(t *testing.T) {
	ix, sink := newTestIndexer(t)
	a, b := txid(1), txid(2)
	seedTrust(t, ix, a, b)

	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.AddNew(b, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedExecutable(a, []byte("a"), true, nil, nil, nil))
	require.NoError(t, ix.StoreParsedExecutable(b, []byte("b"), true, []common.Txid{a}, nil, nil))

	require.Equal(t, []common.Txid{a}, sink.ready)

	require.NoError(t, ix.StoreExecuted(a, storage.ExecutionResult{}))
	require.Equal(t, []common.Txid{a, b}, sink.ready)
}

// TestS2CodeWithoutTrust is spec §8's S2: an untrusted code-bearing root
// never fires ready until trust is granted.
func TestS2CodeWithoutTrust(t *testing.T) {
	ix, sink := newTestIndexer(t)
	a := txid(1)

	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedExecutable(a, []byte("a"), true, nil, nil, nil))
	require.Empty(t, sink.ready)

	require.NoError(t, ix.Trust(a))
	require.Equal(t, []common.Txid{a}, sink.ready)
}

// TestS3RetroactiveTrust is spec §8's S3: trusting the downstream node
// of an untrusted chain also walks the upstream closure, and only the
// newly-unblocked root fires.
func TestS3RetroactiveTrust(t *testing.T) {
	ix, sink := newTestIndexer(t)
	a, b := txid(1), txid(2)

	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.AddNew(b, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedExecutable(a, []byte("a"), true, nil, nil, nil))
	require.NoError(t, ix.StoreParsedExecutable(b, []byte("b"), true, []common.Txid{a}, nil, nil))
	require.Empty(t, sink.ready)

	require.NoError(t, ix.Trust(b))

	require.True(t, ix.IsTrusted(a))
	require.True(t, ix.IsTrusted(b))
	require.Equal(t, []common.Txid{a}, sink.ready)
}

// TestS4MissingDepsDiscovery is spec §8's S4: a ready-fired node whose
// executor discovers an already-indexed extra dependency becomes ready
// again immediately.
func TestS4MissingDepsDiscovery(t *testing.T) {
	ix, sink := newTestIndexer(t)
	a, b := txid(1), txid(2)

	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.AddNew(b, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedNonExecutable(a, []byte("a"), nil, nil))
	require.NoError(t, ix.StoreExecuted(a, storage.ExecutionResult{}))

	require.NoError(t, ix.StoreParsedExecutable(b, []byte("b"), false, nil, nil, nil))
	require.Equal(t, []common.Txid{b}, sink.ready)

	require.NoError(t, ix.AddMissingDeps(b, []common.Txid{a}))
	require.Equal(t, []common.Txid{b, b}, sink.ready)
}

// TestS5ExecutionFailureCascades is spec §8's S5: failing an executable
// predecessor propagates the failure through the whole downstream chain.
func TestS5ExecutionFailureCascades(t *testing.T) {
	ix, _ := newTestIndexer(t)
	a, b, c := txid(1), txid(2), txid(3)
	seedTrust(t, ix, a, b, c)

	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.AddNew(b, storage.HeightMempool))
	require.NoError(t, ix.AddNew(c, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedExecutable(a, []byte("a"), true, nil, nil, nil))
	require.NoError(t, ix.StoreParsedExecutable(b, []byte("b"), true, []common.Txid{a}, nil, nil))
	require.NoError(t, ix.StoreParsedExecutable(c, []byte("c"), true, []common.Txid{b}, nil, nil))

	require.NoError(t, ix.SetExecutionFailed(a))

	for _, id := range []common.Txid{a, b, c} {
		rec, err := ix.store.GetTransaction(id)
		require.NoError(t, err)
		require.NotNilf(t, rec, "record for %s vanished entirely: %s", id, dumper.Sdump(rec))
		require.False(t, rec.Executable, "txid %s", id)
		require.True(t, rec.Executed, "txid %s", id)
		require.False(t, rec.Indexed, "txid %s", id)
		_, stillUnexecuted := ix.graph.Get(id)
		require.False(t, stillUnexecuted, "txid %s must leave the unexecuted graph", id)
	}
}

func TestAddNewIsNoOpWhenAlreadyPresent(t *testing.T) {
	ix, _ := newTestIndexer(t)
	a := txid(1)
	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedNonExecutable(a, []byte("a"), nil, nil))
	require.NoError(t, ix.AddNew(a, storage.HeightMempool))

	rec, err := ix.store.GetTransaction(a)
	require.NoError(t, err)
	require.True(t, rec.HasBytes, "a second addNew must not clobber the already-parsed record")
}

// TestStoreParsedExecutableDiscoversUnseenDep covers a dep named in a
// StoreParsedExecutable call before anything ever called AddNew for it:
// ensureAddNew must still land it in the in-memory graph so the upstream
// edge is real, and its freshness must never be mistaken for a
// permanently-failed dependency.
func TestStoreParsedExecutableDiscoversUnseenDep(t *testing.T) {
	ix, sink := newTestIndexer(t)
	a, b := txid(1), txid(2)
	seedTrust(t, ix, a, b)

	require.NoError(t, ix.AddNew(b, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedExecutable(b, []byte("b"), true, []common.Txid{a}, nil, nil))

	rec, err := ix.store.GetTransaction(a)
	require.NoError(t, err)
	require.NotNil(t, rec, "ensureAddNew must insert a bare row for a")

	n, present := ix.graph.Get(a)
	require.True(t, present, "ensureAddNew must also land a in the in-memory graph")
	require.Contains(t, n.DownstreamTxids(), b, "a must have a real upstream edge to b")
	require.Empty(t, sink.ready, "b cannot be ready until its fresh dep a executes")

	require.NoError(t, ix.StoreParsedNonExecutable(a, []byte("a"), nil, nil))
	require.Equal(t, []common.Txid{b}, sink.ready)
}

func TestBanOverridesTrust(t *testing.T) {
	ix, sink := newTestIndexer(t)
	a := txid(1)
	seedTrust(t, ix, a)

	require.NoError(t, ix.AddNew(a, storage.HeightMempool))
	require.NoError(t, ix.StoreParsedExecutable(a, []byte("a"), true, nil, nil, nil))
	require.Equal(t, []common.Txid{a}, sink.ready)

	require.NoError(t, ix.Ban(a))
	require.True(t, ix.IsBanned(a))
	_, present := ix.graph.Get(a)
	require.True(t, present, "ban resurrects the node into the unexecuted graph")

	n, _ := ix.graph.Get(a)
	require.False(t, n.QueuedForExecution, "a banned node is never ready regardless of trust")
}
