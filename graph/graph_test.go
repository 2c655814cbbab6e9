package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
)

type fakeTrust struct {
	trusted map[common.Txid]bool
	banned  map[common.Txid]bool
}

func newFakeTrust() *fakeTrust {
	return &fakeTrust{trusted: map[common.Txid]bool{}, banned: map[common.Txid]bool{}}
}

func (f *fakeTrust) IsTrusted(txid common.Txid) bool { return f.trusted[txid] }
func (f *fakeTrust) IsBanned(txid common.Txid) bool  { return f.banned[txid] }

type fakeNotifier struct {
	fired []common.Txid
}

func (f *fakeNotifier) OnReadyToExecute(txid common.Txid) {
	f.fired = append(f.fired, txid)
}

func txid(b byte) common.Txid {
	var t common.Txid
	t[0] = b
	return t
}

func TestAddEdgeRequiresBothEndpointsPresent(t *testing.T) {
	g := New(newFakeTrust(), &fakeNotifier{})
	a, b := txid(1), txid(2)

	g.Add(a, true, false)
	g.AddEdge(a, b) // b not yet present, must be a no-op

	nodeA, ok := g.Get(a)
	require.True(t, ok)
	assert.Empty(t, nodeA.Downstream)

	g.Add(b, true, false)
	g.AddEdge(a, b)

	nodeA, _ = g.Get(a)
	nodeB, _ := g.Get(b)
	assert.Contains(t, nodeA.Downstream, b)
	assert.Contains(t, nodeB.Upstream, a)
}

func TestRemoveDetachesFromAllNeighbours(t *testing.T) {
	g := New(newFakeTrust(), &fakeNotifier{})
	a, b, c := txid(1), txid(2), txid(3)
	g.Add(a, true, false)
	g.Add(b, true, false)
	g.Add(c, true, false)
	g.AddEdge(a, b)
	g.AddEdge(b, c)

	g.Remove(b)

	_, ok := g.Get(b)
	assert.False(t, ok)
	nodeA, _ := g.Get(a)
	assert.NotContains(t, nodeA.Downstream, b)
	nodeC, _ := g.Get(c)
	assert.NotContains(t, nodeC.Upstream, b)
}

func TestAddIsIdempotent(t *testing.T) {
	g := New(newFakeTrust(), &fakeNotifier{})
	a := txid(1)
	n1 := g.Add(a, false, false)
	n2 := g.Add(a, true, true)
	assert.Same(t, n1, n2)
	assert.False(t, n2.Downloaded, "second Add must not overwrite an existing node")
	assert.Equal(t, 1, g.Len())
}
