// Copyright 2026 The txindexer Authors
// This file is part of the txindexer library.
//
// The txindexer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The txindexer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the txindexer library. If not, see <http://www.gnu.org/licenses/>.

package graph

import (
	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/metrics"
)

// TrustChecker is the slice of trust/ban state the readiness predicate
// needs. It is satisfied by *trust.Registry; declared here (rather than
// imported from package trust) so graph has no dependency on trust and
// the two packages can be tested in isolation.
type TrustChecker interface {
	IsTrusted(txid common.Txid) bool
	IsBanned(txid common.Txid) bool
}

// ReadyNotifier receives a ready-root fire (spec §4.D: "whenever a node's
// flag becomes true and its upstream set is empty"). indexer.Indexer wires
// this to the event sink's onReadyToExecute slot.
type ReadyNotifier interface {
	OnReadyToExecute(txid common.Txid)
}

// Graph is the unexecuted graph (component C) plus the readiness
// evaluator (component D) operating directly on its nodes. It is not
// safe for concurrent use — per spec §5, the core runs single-threaded.
type Graph struct {
	nodes map[common.Txid]*Node
	trust TrustChecker
	ready ReadyNotifier
	log   *log.Logger

	numQueued int
}

func New(trust TrustChecker, ready ReadyNotifier) *Graph {
	return &Graph{
		nodes: make(map[common.Txid]*Node),
		trust: trust,
		ready: ready,
		log:   log.NewModuleLogger("graph"),
	}
}

// Get returns the node for txid, if it is currently present.
func (g *Graph) Get(txid common.Txid) (*Node, bool) {
	n, ok := g.nodes[txid]
	return n, ok
}

// Len reports the number of nodes currently in the unexecuted graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NumQueuedForExecution is the materialised counter of invariant 2.
func (g *Graph) NumQueuedForExecution() int {
	return g.numQueued
}

// Add creates a new node for txid (no-op, returning the existing node, if
// already present) — used by addNew and by unindex's resurrection path.
func (g *Graph) Add(txid common.Txid, downloaded, hasCode bool) *Node {
	if n, ok := g.nodes[txid]; ok {
		return n
	}
	n := newNode(txid, downloaded, hasCode)
	g.nodes[txid] = n
	metrics.UnexecutedNodes.Set(float64(len(g.nodes)))
	return n
}

// Remove detaches txid's node from every neighbour and deletes it from
// the graph. It does not recompute neighbours' readiness; callers that
// need propagation (storeExecuted, setExecutionFailed,
// storeParsedNonExecutable) do that explicitly afterward,
// since the right downstream-only-vs-both-directions behaviour differs
// per ingestion operation (spec §4.E).
func (g *Graph) Remove(txid common.Txid) {
	n, ok := g.nodes[txid]
	if !ok {
		return
	}
	for _, up := range n.Upstream {
		delete(up.Downstream, txid)
	}
	for _, down := range n.Downstream {
		delete(down.Upstream, txid)
	}
	if n.QueuedForExecution {
		g.numQueued--
		metrics.QueuedForExecution.Set(float64(g.numQueued))
	}
	delete(g.nodes, txid)
	metrics.UnexecutedNodes.Set(float64(len(g.nodes)))
}

// AddEdge materialises the in-memory up->down adjacency. It is a no-op
// unless both endpoints are currently present in the graph (spec §4.C:
// "An edge exists in memory iff both endpoints are present in the map").
func (g *Graph) AddEdge(up, down common.Txid) {
	upNode, ok := g.nodes[up]
	if !ok {
		return
	}
	downNode, ok := g.nodes[down]
	if !ok {
		return
	}
	upNode.Downstream[down] = downNode
	downNode.Upstream[up] = upNode
}

// RemoveEdge drops the in-memory up->down adjacency, if present.
func (g *Graph) RemoveEdge(up, down common.Txid) {
	if upNode, ok := g.nodes[up]; ok {
		delete(upNode.Downstream, down)
	}
	if downNode, ok := g.nodes[down]; ok {
		delete(downNode.Upstream, up)
	}
}

// Range calls f for every node currently in the graph. f returning false
// stops the iteration early. The map itself must not be mutated from
// within f; collect txids first if a mutating pass is needed.
func (g *Graph) Range(f func(txid common.Txid, n *Node) bool) {
	for txid, n := range g.nodes {
		if !f(txid, n) {
			return
		}
	}
}

// DownstreamTxids returns a snapshot slice of n's downstream neighbours'
// txids, safe to range over while the caller mutates the graph.
func (n *Node) DownstreamTxids() []common.Txid {
	out := make([]common.Txid, 0, len(n.Downstream))
	for txid := range n.Downstream {
		out = append(out, txid)
	}
	return out
}
