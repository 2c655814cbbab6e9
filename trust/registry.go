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

// Package trust is the Trust/Ban registry (component B): in-memory sets
// mirrored to the Store for O(1) membership checks, plus the upstream
// BFS helpers spec §4.B needs for trust-closure propagation. It composes
// with package graph (Registry implements graph.TrustChecker) but never
// imports package indexer — the composite operations untrust/ban that
// also call unindex live in indexer, which owns both this registry and
// the graph.
package trust

import (
	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/graph"
	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/storage"
)

var logger = log.NewModuleLogger("trust")

// Registry is the in-memory mirror of the trust and ban sets. Ban
// dominates trust (spec §3): IsBanned is checked independently by the
// readiness predicate regardless of trust membership.
type Registry struct {
	trusted map[common.Txid]struct{}
	banned  map[common.Txid]struct{}
}

// Load builds a Registry from the Store's persisted sets, for use on
// process start (spec §4.B's "mirrored to Store").
func Load(store storage.Store) (*Registry, error) {
	trustedList, err := store.GetAllTrusted()
	if err != nil {
		return nil, err
	}
	bannedList, err := store.GetAllBanned()
	if err != nil {
		return nil, err
	}
	r := &Registry{
		trusted: make(map[common.Txid]struct{}, len(trustedList)),
		banned:  make(map[common.Txid]struct{}, len(bannedList)),
	}
	for _, txid := range trustedList {
		r.trusted[txid] = struct{}{}
	}
	for _, txid := range bannedList {
		r.banned[txid] = struct{}{}
	}
	logger.Info("trust registry loaded", "trusted", len(r.trusted), "banned", len(r.banned))
	return r, nil
}

// IsTrusted and IsBanned implement graph.TrustChecker.
func (r *Registry) IsTrusted(txid common.Txid) bool {
	_, ok := r.trusted[txid]
	return ok
}

func (r *Registry) IsBanned(txid common.Txid) bool {
	_, ok := r.banned[txid]
	return ok
}

// AddTrust persists and mirrors a single trust entry. It does not walk
// the upstream closure — callers that need the closure use
// TrustClosure first and call AddTrust once per member.
func (r *Registry) AddTrust(tx storage.Tx, txid common.Txid) error {
	if err := tx.InsertTrust(txid); err != nil {
		return err
	}
	r.trusted[txid] = struct{}{}
	return nil
}

// RemoveTrust is the second half of untrust(txid) (spec §4.B): the
// unindex side is the caller's (indexer's) responsibility.
func (r *Registry) RemoveTrust(tx storage.Tx, txid common.Txid) error {
	if err := tx.DeleteTrust(txid); err != nil {
		return err
	}
	delete(r.trusted, txid)
	return nil
}

func (r *Registry) AddBan(tx storage.Tx, txid common.Txid) error {
	if err := tx.InsertBan(txid); err != nil {
		return err
	}
	r.banned[txid] = struct{}{}
	return nil
}

func (r *Registry) RemoveBan(tx storage.Tx, txid common.Txid) error {
	if err := tx.DeleteBan(txid); err != nil {
		return err
	}
	delete(r.banned, txid)
	return nil
}

// TrustClosure performs the BFS upstream walk spec §4.B describes for
// trust(txid): every ancestor, reachable through the unexecuted graph,
// with hasCode=true that is currently untrusted. txid itself is never
// included (trust(txid) inserts it separately); order is BFS discovery
// order, since §5 requires onTrustTransaction to fire "in the order of
// discovery (BFS upstream)".
func (r *Registry) TrustClosure(g *graph.Graph, txid common.Txid) []common.Txid {
	start, ok := g.Get(txid)
	if !ok {
		return nil
	}
	var out []common.Txid
	visited := map[common.Txid]struct{}{txid: {}}
	queue := []*graph.Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for upTxid, up := range n.Upstream {
			if _, seen := visited[upTxid]; seen {
				continue
			}
			visited[upTxid] = struct{}{}
			queue = append(queue, up)
			if up.HasCode && !r.IsTrusted(upTxid) {
				out = append(out, upTxid)
			}
		}
	}
	return out
}

// GetAllUntrusted returns every unexecuted node with hasCode ∧ ¬trusted
// (spec §4.B).
func (r *Registry) GetAllUntrusted(g *graph.Graph) []common.Txid {
	var out []common.Txid
	g.Range(func(txid common.Txid, n *graph.Node) bool {
		if n.HasCode && !r.IsTrusted(txid) {
			out = append(out, txid)
		}
		return true
	})
	return out
}

// GetTransactionUntrusted is the BFS upstream traversal of spec §4.B:
// the transitive set of untrusted code-bearing ancestors of txid,
// including txid itself if it qualifies.
func (r *Registry) GetTransactionUntrusted(g *graph.Graph, txid common.Txid) []common.Txid {
	start, ok := g.Get(txid)
	if !ok {
		return nil
	}
	var out []common.Txid
	if start.HasCode && !r.IsTrusted(txid) {
		out = append(out, txid)
	}
	visited := map[common.Txid]struct{}{txid: {}}
	queue := []*graph.Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for upTxid, up := range n.Upstream {
			if _, seen := visited[upTxid]; seen {
				continue
			}
			visited[upTxid] = struct{}{}
			queue = append(queue, up)
			if up.HasCode && !r.IsTrusted(upTxid) {
				out = append(out, upTxid)
			}
		}
	}
	return out
}
