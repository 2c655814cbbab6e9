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

// Package chaintip is the chain-tip tracker (component F): current
// (height, hash), reorg rewind, and mempool eviction, all driven off the
// same Indexer that owns the Store and graph — there is no separate
// mutation path here, only the two query-then-delete sweeps spec §4.F
// names.
package chaintip

import (
	"time"

	"github.com/gxplatform/txindexer/indexer"
	"github.com/gxplatform/txindexer/log"
)

var logger = log.NewModuleLogger("chaintip")

type Tracker struct {
	ix *indexer.Indexer
}

func New(ix *indexer.Indexer) *Tracker {
	return &Tracker{ix: ix}
}

// Height and Hash are direct Store reads (spec §4.F).
func (t *Tracker) Height() (int64, bool, error) {
	return t.ix.Store().GetHeight()
}

func (t *Tracker) Hash() (string, error) {
	return t.ix.Store().GetHash()
}

// Advance records the new tip in its own atomic transaction, for the
// driver to call once a block (or a run of mempool transactions with no
// height change) has been fully ingested.
func (t *Tracker) Advance(height int64, hash string) error {
	tx, err := t.ix.Store().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := tx.SetHeightAndHash(height, hash); err != nil {
		return err
	}
	return tx.Commit()
}

// IsReorg reports whether a candidate next block's prevHash diverges
// from the current tip hash — the driver's cue to call Rewind before
// ingesting anything from the new chain (spec §4.F).
func (t *Tracker) IsReorg(prevHash string) (bool, error) {
	hash, err := t.Hash()
	if err != nil {
		return false, err
	}
	if hash == "" {
		return false, nil
	}
	return hash != prevHash, nil
}

// Rewind deletes every transaction recorded above height, via
// Indexer.DeleteTransaction, so the driver can resume ingestion from a
// consistent point after a reorg (spec §4.F).
func (t *Tracker) Rewind(height int64) error {
	txids, err := t.ix.Store().GetTransactionsAboveHeight(height)
	if err != nil {
		return err
	}
	logger.Info("rewinding chain tip", "height", height, "transactions", len(txids))
	for _, txid := range txids {
		if err := t.ix.DeleteTransaction(txid); err != nil {
			return err
		}
	}
	return nil
}

// EvictMempool deletes every mempool transaction received before the
// cutoff, via Indexer.DeleteTransaction (spec §4.F).
func (t *Tracker) EvictMempool(before time.Time) error {
	txids, err := t.ix.Store().GetMempoolTransactionsBeforeTime(before.Unix())
	if err != nil {
		return err
	}
	if len(txids) > 0 {
		logger.Info("evicting stale mempool transactions", "count", len(txids), "before", before)
	}
	for _, txid := range txids {
		if err := t.ix.DeleteTransaction(txid); err != nil {
			return err
		}
	}
	return nil
}
