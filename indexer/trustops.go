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

package indexer

import "github.com/gxplatform/txindexer/common"

// IsTrusted and IsBanned are O(1) passthroughs to the registry (spec §4.B).
func (ix *Indexer) IsTrusted(txid common.Txid) bool { return ix.trust.IsTrusted(txid) }
func (ix *Indexer) IsBanned(txid common.Txid) bool  { return ix.trust.IsBanned(txid) }

// Trust inserts txid into the trust set and walks upstream through the
// unexecuted graph, also trusting every untrusted code-bearing ancestor
// in the same atomic transaction (spec §4.B). After commit, readiness is
// re-evaluated for every touched node and onTrustTransaction fires for
// each, in BFS discovery order (spec §5).
func (ix *Indexer) Trust(txid common.Txid) error {
	closure := ix.trust.TrustClosure(ix.graph, txid)
	touched := append([]common.Txid{txid}, closure...)

	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range touched {
		if err := ix.trust.AddTrust(tx, t); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range touched {
		ix.graph.CheckExecutability(t)
		ix.sink.OnTrustTransaction(t)
	}
	return nil
}

// Untrust performs unindex(txid) then removes txid from the trust set
// (spec §4.B): already-indexed descendants are resurrected because their
// indexed state was produced under the now-revoked trust.
func (ix *Indexer) Untrust(txid common.Txid) error {
	if err := ix.Unindex(txid); err != nil {
		return err
	}

	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ix.trust.RemoveTrust(tx, txid); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	ix.graph.CheckExecutability(txid)
	ix.sink.OnUntrustTransaction(txid)
	return nil
}

// Ban performs unindex(txid) then inserts txid into the ban set; a
// banned txid is never ready regardless of trust (spec §4.B).
func (ix *Indexer) Ban(txid common.Txid) error {
	if err := ix.Unindex(txid); err != nil {
		return err
	}

	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ix.trust.AddBan(tx, txid); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	ix.graph.CheckExecutability(txid)
	ix.sink.OnBanTransaction(txid)
	return nil
}

// Unban removes txid from the ban set and re-evaluates its readiness, if
// it is still unexecuted (spec §4.B).
func (ix *Indexer) Unban(txid common.Txid) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ix.trust.RemoveBan(tx, txid); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	ix.graph.CheckExecutability(txid)
	ix.sink.OnUnbanTransaction(txid)
	return nil
}

// GetAllUntrusted returns every unexecuted node with hasCode ∧ ¬trusted.
func (ix *Indexer) GetAllUntrusted() []common.Txid {
	return ix.trust.GetAllUntrusted(ix.graph)
}

// GetTransactionUntrusted returns the transitive set of untrusted
// code-bearing ancestors of txid, including txid itself if it qualifies.
func (ix *Indexer) GetTransactionUntrusted(txid common.Txid) []common.Txid {
	return ix.trust.GetTransactionUntrusted(ix.graph, txid)
}
