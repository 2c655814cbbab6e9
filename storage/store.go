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

// Package storage is the Store façade (component A): typed operations over
// the persistent tables of spec §6, fronting a relational engine for the
// tx/deps/jig/berry/spends/trust/ban/crawl tables and a separate pluggable
// blob engine for raw transaction bytes. It is grounded on the teacher's
// storage/database package (db_manager.go's DBManager interface and its
// per-DBEntryType backend split).
package storage

import "github.com/gxplatform/txindexer/common"

// Store is the read side of the façade plus the entry point for atomic
// mutations. Readers may run outside a transaction (spec §4.A); every
// mutation in spec §4.E runs inside exactly one Tx (spec §5: "nested
// transactions are forbidden").
type Store interface {
	// Begin opens one atomic multi-statement transaction. The caller must
	// Commit or Rollback it before calling Begin again; the Store does not
	// serialize concurrent Begin calls itself; the single-dispatch-goroutine
	// model (spec §5, SPEC_FULL §5) is what actually guarantees exclusivity.
	Begin() (Tx, error)

	Close() error

	GetTransaction(txid common.Txid) (*TxRecord, error)
	// GetUnexecutedCandidates returns every txid whose persisted row
	// satisfies invariant 4: (executable=1 ∧ executed=0) ∨ bytes IS NULL.
	GetUnexecutedCandidates() ([]common.Txid, error)
	// GetEdgesAmongCandidates returns every persisted (up,down) edge whose
	// downstream endpoint is a member of GetUnexecutedCandidates, used to
	// rebuild the graph's adjacency lists on open (spec §4.C).
	GetEdgesAmongCandidates() ([][2]common.Txid, error)
	// GetUpstream returns the persisted upstream set of down, regardless of
	// whether those ancestors are still unexecuted (used by unindex to
	// rebuild only the still-unexecuted subset, spec §4.E).
	GetUpstream(down common.Txid) ([]common.Txid, error)
	GetDownstream(up common.Txid) ([]common.Txid, error)

	IsTrusted(txid common.Txid) (bool, error)
	IsBanned(txid common.Txid) (bool, error)
	GetAllTrusted() ([]common.Txid, error)
	GetAllBanned() ([]common.Txid, error)

	GetHeight() (int64, bool, error)
	GetHash() (string, error)
	GetTransactionsAboveHeight(height int64) ([]common.Txid, error)
	GetMempoolTransactionsBeforeTime(t int64) ([]common.Txid, error)

	GetSpend(loc string) (common.Txid, bool, error)
	GetAllUnspent(filter UnspentFilter) ([]string, error)
	GetNumUnspent(filter UnspentFilter) (int, error)

	// GetTransactionHex returns the downloaded bytes of txid, hex-encoded,
	// for the executor's Executor interface consumption (spec §6).
	GetTransactionHex(txid common.Txid) (string, error)

	// Checkpoint produces a consistent point-in-time copy of the Store at
	// destPath, for the backup exporter (SPEC_FULL §6); it is unrelated to
	// schema migration.
	Checkpoint(destPath string) error
}

// Tx is one atomic multi-statement transaction over the tables of spec §6.
// Every method here is a single logical mutation; §4.E operations compose
// several of them before calling Commit.
type Tx interface {
	InsertBareTransaction(txid common.Txid, height Height, t int64) error
	TransactionExists(txid common.Txid) (bool, error)

	SetBytes(txid common.Txid, bytes []byte) error
	SetExecutable(txid common.Txid, executable bool, hasCode HasCode) error
	SetExecuted(txid common.Txid, executed, indexed bool) error
	DeleteTransactionRow(txid common.Txid) error

	InsertEdge(up, down common.Txid) error
	DeleteEdge(up, down common.Txid) error
	DeleteEdgesTo(down common.Txid) error
	DeleteEdgesForTxid(txid common.Txid) error

	SetSpend(loc string, spendTxid common.Txid) error
	RecordUnspentOutput(loc string) error
	ClearSpendsForTxidPrefix(txid common.Txid) error

	WriteJig(loc string, state []byte, class, lock, scripthash *string) error
	WriteBerry(loc string, state []byte) error
	ClearStatesForTxidPrefix(txid common.Txid) error

	InsertTrust(txid common.Txid) error
	DeleteTrust(txid common.Txid) error
	InsertBan(txid common.Txid) error
	DeleteBan(txid common.Txid) error

	SetHeightAndHash(height int64, hash string) error

	GetTransaction(txid common.Txid) (*TxRecord, error)
	GetUpstream(down common.Txid) ([]common.Txid, error)
	GetDownstream(up common.Txid) ([]common.Txid, error)

	Commit() error
	Rollback() error
}
