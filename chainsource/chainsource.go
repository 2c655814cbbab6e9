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

// Package chainsource declares the ChainSource interface (spec §6): the
// abstract block/mempool collaborator the core consumes but never
// imports a concrete implementation of. Package chainsource/kafka
// provides one sample adapter; operators talking to a node directly
// would provide their own.
package chainsource

import "github.com/gxplatform/txindexer/common"

// Block is one confirmed block's worth of transactions, as handed back
// by GetNextBlock.
type Block struct {
	Height   int64
	Hash     string
	PrevHash string
	Time     int64
	Txids    []common.Txid
	RawTxns  map[common.Txid][]byte
}

// MempoolTx is one mempool admission event.
type MempoolTx struct {
	Txid common.Txid
	Raw  []byte
}

// ChainSource is what the core consumes (spec §6). GetNextBlock returns
// exactly one of: a Block, reorg=true (caller should rewind before
// retrying), or ok=false (no new block yet).
type ChainSource interface {
	GetNextBlock(currHeight int64, currHash string) (block Block, reorg bool, ok bool, err error)

	// Mempool returns a channel of mempool admissions. The channel is
	// closed when the source is done (e.g. on Close); the driver ranges
	// over it calling Indexer.AddNew then a parse-store operation.
	Mempool() <-chan MempoolTx

	Close() error
}
