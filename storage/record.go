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

package storage

import "github.com/gxplatform/txindexer/common"

// Height encodes the three states a transaction record's height can be in
// (spec §3): a real block height (>=0), the mempool sentinel, or unknown
// (absent from any chain the source has told us about yet).
type Height int64

const (
	HeightMempool Height = -1
	HeightUnknown Height = -2
)

// HasCode is the tri-state described in spec §3: unknown until parsed,
// then true or false.
type HasCode uint8

const (
	HasCodeUnknown HasCode = iota
	HasCodeFalse
	HasCodeTrue
)

// TxRecord is the persisted transaction row (spec §3). The raw bytes
// themselves live in the blob store (SPEC_FULL §4.A), not inline on this
// struct — HasBytes tracks the invariant bit (bytes=absent ⇒
// executable=false ∧ executed=false) without paying for a blob read on
// every metadata lookup. Callers that need the bytes fetch them
// separately via Store.GetTransactionHex.
type TxRecord struct {
	Txid       common.Txid
	Height     Height
	Time       int64
	HasBytes   bool
	HasCode    HasCode
	Executable bool
	Executed   bool
	Indexed    bool
}

// InUnexecutedSet implements the membership predicate of invariant 4:
// (executable=1 ∧ executed=0) ∨ bytes IS NULL.
func (r *TxRecord) InUnexecutedSet() bool {
	if r == nil {
		return false
	}
	return (r.Executable && !r.Executed) || !r.HasBytes
}

// UnspentFilter narrows the unspent listing queries of §4.G. A nil pointer
// field means "don't filter on this annotation"; the seven non-trivial
// combinations of {class, lock, scripthash} are just this struct with one,
// two, or three fields set.
type UnspentFilter struct {
	Class      *string
	Lock       *string
	Scripthash *string
}

// ExecutionResult is what the executor hands back to storeExecuted (spec
// §4.E, §6). Cache keys are "jig://<location>" or "berry://<location>";
// Classes/Locks/Scripthashes key by the same location string.
type ExecutionResult struct {
	Cache       map[string][]byte
	Classes     map[string]string
	Locks       map[string]string
	Scripthashes map[string]string
}
