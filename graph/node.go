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

// Package graph is the unexecuted graph (component C) and the readiness
// evaluator that sits on top of it (component D): an in-memory DAG of
// not-yet-indexed transactions, mirroring the adjacency-list-of-pointers
// shape the teacher uses for its in-memory block/state caches, plus the
// pure readiness predicate of spec §4.D.
package graph

import "github.com/gxplatform/txindexer/common"

// Node is the in-memory unexecuted node of spec §3. It exists in the
// graph iff its txid is not-yet-indexed or not-yet-downloaded; while
// alive it exclusively owns its adjacency lists, which are back-
// references only (removing a node detaches it from every peer).
type Node struct {
	Txid     common.Txid
	Downloaded bool
	HasCode  bool

	// QueuedForExecution mirrors numQueuedForExecution's per-node flag
	// (invariant 2). Mutated only by checkExecutability.
	QueuedForExecution bool

	Upstream   map[common.Txid]*Node
	Downstream map[common.Txid]*Node
}

func newNode(txid common.Txid, downloaded, hasCode bool) *Node {
	return &Node{
		Txid:       txid,
		Downloaded: downloaded,
		HasCode:    hasCode,
		Upstream:   make(map[common.Txid]*Node),
		Downstream: make(map[common.Txid]*Node),
	}
}

// IsRoot reports whether n has no upstream dependency still present in
// the unexecuted graph — the condition for a ready-root fire (spec §4.D).
func (n *Node) IsRoot() bool {
	return len(n.Upstream) == 0
}
