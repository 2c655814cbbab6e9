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

// Package indexer is the ingestion operations (component E): the single
// owner of the Store, the unexecuted graph and the trust registry, and
// the only package that composes all three into the operations spec
// §4.E-§4.F name. Each Store mutation here commits in its own atomic
// Store transaction, but not every exported method is a single one:
// Untrust and Ban commit Unindex's transaction and then a second one,
// and SetExecutionFailed (also reached from StoreParsedExecutable)
// commits each cascaded descendant in a transaction of its own, so an
// error part-way leaves the earlier commits in place. Methods are meant
// to be called from a single logical owner goroutine (spec §5) — Indexer
// itself does no internal locking.
package indexer

import (
	"strings"
	"time"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/event"
	"github.com/gxplatform/txindexer/graph"
	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/storage"
	"github.com/gxplatform/txindexer/trust"
)

var logger = log.NewModuleLogger("indexer")

// Indexer is component E. It implements graph.ReadyNotifier so the graph
// can call straight back into it on a ready-root fire.
type Indexer struct {
	store storage.Store
	graph *graph.Graph
	trust *trust.Registry
	sink  event.Sink
}

// New opens an Indexer over an already-migrated Store: loads the trust
// registry, rebuilds the unexecuted graph from the persisted candidate
// set (spec §4.C: "(executable=1 ∧ executed=0) ∨ bytes IS NULL"), and
// derives the initial readiness flags.
func New(store storage.Store, sink event.Sink) (*Indexer, error) {
	if sink == nil {
		sink = event.Nop{}
	}
	registry, err := trust.Load(store)
	if err != nil {
		return nil, err
	}
	ix := &Indexer{store: store, trust: registry, sink: sink}
	ix.graph = graph.New(registry, ix)

	if err := ix.rebuildGraph(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Indexer) rebuildGraph() error {
	candidates, err := ix.store.GetUnexecutedCandidates()
	if err != nil {
		return err
	}
	for _, txid := range candidates {
		rec, err := ix.store.GetTransaction(txid)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		ix.graph.Add(txid, rec.HasBytes, rec.HasCode == storage.HasCodeTrue)
	}

	edges, err := ix.store.GetEdgesAmongCandidates()
	if err != nil {
		return err
	}
	for _, e := range edges {
		ix.graph.AddEdge(e[0], e[1])
	}

	for _, txid := range candidates {
		ix.graph.CheckExecutability(txid)
	}
	ix.graph.ReportMemSize()
	logger.Info("unexecuted graph rebuilt", "nodes", ix.graph.Len(), "queued", ix.graph.NumQueuedForExecution())
	return nil
}

// OnReadyToExecute implements graph.ReadyNotifier, forwarding straight
// to the configured event sink.
func (ix *Indexer) OnReadyToExecute(txid common.Txid) {
	ix.sink.OnReadyToExecute(txid)
}

// AddNew is a no-op if txid is already present (spec §4.E). height
// should be storage.HeightMempool for mempool ingestion or the
// transaction's confirmed block height.
func (ix *Indexer) AddNew(txid common.Txid, height storage.Height) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := tx.TransactionExists(txid)
	if err != nil {
		return err
	}
	if exists {
		return tx.Rollback()
	}

	now := time.Now().Unix()
	if err := tx.InsertBareTransaction(txid, height, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	ix.graph.Add(txid, false, false)
	ix.sink.OnAddTransaction(txid)
	return nil
}

// StoreParsedNonExecutable writes bytes, marks the node downloaded and
// non-executable, and removes it from the unexecuted graph — a
// non-executable predecessor trivially satisfies downstream's upstream
// clause, so every former downstream neighbour is re-evaluated after the
// edge to this node is dropped (spec §4.E).
func (ix *Indexer) StoreParsedNonExecutable(txid common.Txid, bytes []byte, inputs, outputs []string) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.SetBytes(txid, bytes); err != nil {
		return err
	}
	if err := tx.SetExecutable(txid, false, storage.HasCodeFalse); err != nil {
		return err
	}
	if err := recordSpends(tx, txid, inputs, outputs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	n, ok := ix.graph.Get(txid)
	if !ok {
		return nil
	}
	downstream := n.DownstreamTxids()
	ix.graph.Remove(txid)
	for _, down := range downstream {
		ix.graph.CheckExecutability(down)
	}
	return nil
}

// StoreParsedExecutable writes bytes, sets executable=true and hasCode,
// registers each declared dependency (creating it if unseen), and
// either re-evaluates readiness or cascades an execution failure if a
// dependency turned out to be persistently unindexable (spec §4.E).
func (ix *Indexer) StoreParsedExecutable(txid common.Txid, bytes []byte, hasCode bool, deps []common.Txid, inputs, outputs []string) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := tx.SetBytes(txid, bytes); err != nil {
		return err
	}
	hc := storage.HasCodeFalse
	if hasCode {
		hc = storage.HasCodeTrue
	}
	if err := tx.SetExecutable(txid, true, hc); err != nil {
		return err
	}
	if err := recordSpends(tx, txid, inputs, outputs); err != nil {
		return err
	}

	freshDeps := make(map[common.Txid]bool, len(deps))
	for _, dep := range deps {
		existed, err := ensureAddNew(tx, dep)
		if err != nil {
			return err
		}
		if !existed {
			freshDeps[dep] = true
		}
		if err := tx.InsertEdge(dep, txid); err != nil {
			return err
		}
	}

	// Determine, still inside the transaction, whether any dep is
	// permanently unindexable (executed but never indexed, and no
	// longer tracked as unexecuted). A dep this call just created via
	// ensureAddNew is a brand new bare row, not a previously-failed one,
	// so it never qualifies regardless of graph membership.
	var failedDep bool
	for _, dep := range deps {
		if freshDeps[dep] {
			continue
		}
		if _, ok := ix.graph.Get(dep); ok {
			continue
		}
		rec, err := tx.GetTransaction(dep)
		if err != nil {
			return err
		}
		if rec != nil && rec.Executed && !rec.Indexed {
			failedDep = true
			break
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	for dep := range freshDeps {
		ix.graph.Add(dep, false, false)
	}
	for _, dep := range deps {
		ix.graph.AddEdge(dep, txid)
	}
	if n, ok := ix.graph.Get(txid); ok {
		n.Downloaded = true
		n.HasCode = hasCode
	}

	if failedDep {
		return ix.SetExecutionFailed(txid)
	}
	ix.graph.CheckExecutability(txid)
	return nil
}

// ensureAddNew is addNew's no-op-if-present insert, used inline inside
// an already-open Tx rather than recursing into Indexer.AddNew (which
// owns its own transaction). It reports whether txid already had a row,
// so the caller can tell a freshly-discovered dependency apart from one
// that was already tracked.
func ensureAddNew(tx storage.Tx, txid common.Txid) (existed bool, err error) {
	exists, err := tx.TransactionExists(txid)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	return false, tx.InsertBareTransaction(txid, storage.HeightUnknown, time.Now().Unix())
}

func recordSpends(tx storage.Tx, txid common.Txid, inputs, outputs []string) error {
	for _, loc := range inputs {
		if err := tx.SetSpend(loc, txid); err != nil {
			return err
		}
	}
	for _, loc := range outputs {
		if err := tx.RecordUnspentOutput(loc); err != nil {
			return err
		}
	}
	return nil
}

const (
	cachePrefixJig   = "jig://"
	cachePrefixBerry = "berry://"
)

// StoreExecuted records a successful execution result, removes the node
// from the graph, detaches it from downstream neighbours, and re-emits
// ready-root events for neighbours that were already flagged and are now
// upstream-empty (spec §4.E).
func (ix *Indexer) StoreExecuted(txid common.Txid, result storage.ExecutionResult) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.SetExecuted(txid, true, true); err != nil {
		return err
	}
	if err := writeResult(tx, result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	n, ok := ix.graph.Get(txid)
	if !ok {
		return nil
	}
	downstream := n.DownstreamTxids()
	ix.graph.Remove(txid)

	for _, down := range downstream {
		if dn, ok := ix.graph.Get(down); ok && dn.QueuedForExecution && dn.IsRoot() {
			ix.sink.OnReadyToExecute(down)
			continue
		}
		ix.graph.CheckExecutability(down)
	}
	return nil
}

func writeResult(tx storage.Tx, result storage.ExecutionResult) error {
	for key, state := range result.Cache {
		switch {
		case strings.HasPrefix(key, cachePrefixJig):
			loc := strings.TrimPrefix(key, cachePrefixJig)
			var class, lock, scripthash *string
			if v, ok := result.Classes[loc]; ok {
				class = &v
			}
			if v, ok := result.Locks[loc]; ok {
				lock = &v
			}
			if v, ok := result.Scripthashes[loc]; ok {
				scripthash = &v
			}
			if err := tx.WriteJig(loc, state, class, lock, scripthash); err != nil {
				return err
			}
		case strings.HasPrefix(key, cachePrefixBerry):
			loc := strings.TrimPrefix(key, cachePrefixBerry)
			if err := tx.WriteBerry(loc, state); err != nil {
				return err
			}
		default:
			invariantViolation("indexer: execution result cache key %q has unknown prefix", key)
		}
	}
	return nil
}

// SetExecutionFailed marks txid permanently non-executed and decides
// whether to cascade the failure to descendants: only if the record was
// genuinely executable does a parse failure propagate, so a spuriously
// failed non-code transaction doesn't poison downstream that never
// depended on it executing (spec §4.E).
func (ix *Indexer) SetExecutionFailed(txid common.Txid) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rec, err := tx.GetTransaction(txid)
	if err != nil {
		return err
	}
	if rec == nil {
		invariantViolation("indexer: setExecutionFailed on unknown txid %s", txid)
	}
	wasExecutable := rec.Executable

	if err := tx.SetExecutable(txid, false, rec.HasCode); err != nil {
		return err
	}
	if err := tx.SetExecuted(txid, true, false); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	n, ok := ix.graph.Get(txid)
	if !ok {
		return nil
	}
	downstream := n.DownstreamTxids()
	ix.graph.Remove(txid)

	if wasExecutable {
		for _, down := range downstream {
			if err := ix.SetExecutionFailed(down); err != nil {
				return err
			}
		}
		return nil
	}
	for _, down := range downstream {
		if dn, ok := ix.graph.Get(down); ok && dn.QueuedForExecution && dn.IsRoot() {
			ix.sink.OnReadyToExecute(down)
			continue
		}
		ix.graph.CheckExecutability(down)
	}
	return nil
}

// AddMissingDeps inserts additional predecessor edges discovered by the
// executor mid-attempt and re-evaluates readiness. If txid was already
// ready and is still a ready root afterwards (every extra dep already
// indexed), onReadyToExecute fires again so the executor retries it. A
// no-op if txid has since been removed from the graph (spec §4.E).
func (ix *Indexer) AddMissingDeps(txid common.Txid, extraDeps []common.Txid) error {
	n, ok := ix.graph.Get(txid)
	if !ok {
		return nil
	}
	wasQueued := n.QueuedForExecution

	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	freshDeps := make(map[common.Txid]bool, len(extraDeps))
	for _, dep := range extraDeps {
		existed, err := ensureAddNew(tx, dep)
		if err != nil {
			return err
		}
		if !existed {
			freshDeps[dep] = true
		}
		if err := tx.InsertEdge(dep, txid); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for dep := range freshDeps {
		ix.graph.Add(dep, false, false)
	}
	for _, dep := range extraDeps {
		ix.graph.AddEdge(dep, txid)
	}
	ix.graph.CheckExecutability(txid)
	if wasQueued && n.QueuedForExecution && n.IsRoot() {
		ix.sink.OnReadyToExecute(txid)
	}
	return nil
}

// Unindex resets txid's executed/indexed state, clears its jig/berry
// states, resurrects it (and every downstream transaction, recursively)
// into the unexecuted graph not-ready, and fires onUnindexTransaction
// for each resurrected node (spec §4.E).
func (ix *Indexer) Unindex(txid common.Txid) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	visited := make(map[common.Txid]struct{})
	var touched []common.Txid
	if err := ix.unindexOne(tx, txid, visited, &touched); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range touched {
		ix.sink.OnUnindexTransaction(t)
	}
	return nil
}

func (ix *Indexer) unindexOne(tx storage.Tx, txid common.Txid, visited map[common.Txid]struct{}, touched *[]common.Txid) error {
	if _, seen := visited[txid]; seen {
		return nil
	}
	visited[txid] = struct{}{}

	rec, err := tx.GetTransaction(txid)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	if err := tx.SetExecuted(txid, false, false); err != nil {
		return err
	}
	if err := tx.ClearStatesForTxidPrefix(txid); err != nil {
		return err
	}

	n := ix.graph.Add(txid, rec.HasBytes, rec.HasCode == storage.HasCodeTrue)
	upstream, err := tx.GetUpstream(txid)
	if err != nil {
		return err
	}
	for _, up := range upstream {
		if _, ok := ix.graph.Get(up); ok {
			ix.graph.AddEdge(up, txid)
		}
	}
	ix.graph.CheckExecutabilityForced(n.Txid, false)
	*touched = append(*touched, txid)

	downstream, err := tx.GetDownstream(txid)
	if err != nil {
		return err
	}
	for _, down := range downstream {
		if err := ix.unindexOne(tx, down, visited, touched); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTransaction removes txid's record, states, edges and spend
// attribution, recursing over every downstream transaction; recursion is
// guarded by an accumulator so a corrupted, cyclic persisted edge table
// cannot diverge (spec §4.E).
func (ix *Indexer) DeleteTransaction(txid common.Txid) error {
	tx, err := ix.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	visited := make(map[common.Txid]struct{})
	var touched []common.Txid
	if err := ix.deleteOne(tx, txid, visited, &touched); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, t := range touched {
		ix.graph.Remove(t)
		ix.sink.OnDeleteTransaction(t)
	}
	return nil
}

func (ix *Indexer) deleteOne(tx storage.Tx, txid common.Txid, visited map[common.Txid]struct{}, touched *[]common.Txid) error {
	if _, seen := visited[txid]; seen {
		return nil
	}
	visited[txid] = struct{}{}

	downstream, err := tx.GetDownstream(txid)
	if err != nil {
		return err
	}

	if err := tx.ClearStatesForTxidPrefix(txid); err != nil {
		return err
	}
	if err := tx.ClearSpendsForTxidPrefix(txid); err != nil {
		return err
	}
	if err := tx.DeleteEdgesForTxid(txid); err != nil {
		return err
	}
	if err := tx.DeleteTransactionRow(txid); err != nil {
		return err
	}
	*touched = append(*touched, txid)

	for _, down := range downstream {
		if err := ix.deleteOne(tx, down, visited, touched); err != nil {
			return err
		}
	}
	return nil
}

// Graph exposes the underlying unexecuted graph for read-only diagnostic
// use; nothing in cmd/txindexer calls it.
func (ix *Indexer) Graph() *graph.Graph { return ix.graph }

// Trust exposes the underlying registry for read-only diagnostic use.
func (ix *Indexer) Trust() *trust.Registry { return ix.trust }

// Store exposes the underlying Store for the executor and chain-tip
// driver to read from directly (GetTransactionHex, GetHeight, ...).
func (ix *Indexer) Store() storage.Store { return ix.store }
