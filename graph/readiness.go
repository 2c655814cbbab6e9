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
	"github.com/gxplatform/txindexer/metrics"
)

// ready is the pure predicate of spec §4.D:
//
//	ready(n) := n.downloaded
//	          ∧ (¬n.hasCode ∨ n.txid ∈ trust)
//	          ∧ n.txid ∉ ban
//	          ∧ ∀ u ∈ n.upstream : u.queuedForExecution
//
// Absent upstream nodes never appear in n.Upstream (AddEdge only links
// present endpoints), so a predecessor that left the graph because it
// turned out non-executable correctly satisfies the clause without any
// special case here.
func (g *Graph) ready(n *Node) bool {
	if !n.Downloaded {
		return false
	}
	if n.HasCode && !g.trust.IsTrusted(n.Txid) {
		return false
	}
	if g.trust.IsBanned(n.Txid) {
		return false
	}
	for _, up := range n.Upstream {
		if !up.QueuedForExecution {
			return false
		}
	}
	return true
}

// CheckExecutability recomputes ready(n) and, if the cached flag
// changes, updates the counter and recursively re-checks every
// downstream neighbour (spec §4.D's incremental propagator). It is a
// no-op if txid is not currently in the graph.
func (g *Graph) CheckExecutability(txid common.Txid) {
	n, ok := g.nodes[txid]
	if !ok {
		return
	}
	g.setFlag(n, g.ready(n))
}

// CheckExecutabilityForced installs forced in place of the ready(n)
// computation — used by unindex to drive a subgraph back to "not ready"
// during revocation without re-deriving the predicate.
func (g *Graph) CheckExecutabilityForced(txid common.Txid, forced bool) {
	n, ok := g.nodes[txid]
	if !ok {
		return
	}
	g.setFlag(n, forced)
}

func (g *Graph) setFlag(n *Node, newFlag bool) {
	if newFlag == n.QueuedForExecution {
		return
	}
	n.QueuedForExecution = newFlag
	if newFlag {
		g.numQueued++
	} else {
		g.numQueued--
	}
	metrics.QueuedForExecution.Set(float64(g.numQueued))

	if newFlag && n.IsRoot() {
		metrics.ReadyRootsTotal.Inc()
		g.readyNotify(n)
	}

	for txid := range n.Downstream {
		g.CheckExecutability(txid)
	}

	if debugAssertions {
		g.assertCounterConsistent()
	}
}

func (g *Graph) readyNotify(n *Node) {
	if g.ready != nil {
		g.ready.OnReadyToExecute(n.Txid)
	}
}

// assertCounterConsistent recomputes numQueuedForExecution from the
// per-node flags and logs if it disagrees with the materialised counter
// (spec §9's "double-counted queue counter" design note). Only compiled
// into the hot path when built with -tags txindexer_debug.
func (g *Graph) assertCounterConsistent() {
	recomputed := 0
	for _, n := range g.nodes {
		if n.QueuedForExecution {
			recomputed++
		}
	}
	if recomputed != g.numQueued {
		g.log.Error("queuedForExecution counter diverged from per-node flags",
			"counter", g.numQueued, "recomputed", recomputed)
	}
}
