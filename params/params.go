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

// Package params holds the named constants that used to live in the
// teacher's own params package (there: bootnodes, gas table, protocol
// limits for a P2P chain client). None of those concerns apply to a
// dependency engine that never runs a P2P node, so this package instead
// carries this system's own small set of deploy-time constants: the
// default trust seed (spec §6) and a handful of size/resource defaults.
package params

// DefaultTrustSeed is the hard-coded txid list inserted with value=1 via
// INSERT-OR-IGNORE on first Store open (spec §6's "Default trust seed").
// Operators are expected to replace this with their own seed via the
// config-loaded trust seed file (SPEC_FULL §2, component I); these are
// placeholders for a from-scratch deployment with no prior trust state.
var DefaultTrustSeed = []string{
	"0000000000000000000000000000000000000000000000000000000000000001",
	"0000000000000000000000000000000000000000000000000000000000000002",
}

const (
	// DefaultUnspentCacheSize bounds the in-process LRU tier of the
	// unspent index (SPEC_FULL §4.G), mirroring the teacher's own
	// default cache sizing for its in-memory lookup caches.
	DefaultUnspentCacheSize = 1 << 16

	// DefaultSQLiteCacheSizePages is a `PRAGMA cache_size` value in
	// pages. storage.Open does not read it: it sets `cache_size = -64000`
	// (about 64 MiB, SQLite's negative-means-KiB form) itself.
	DefaultSQLiteCacheSizePages = 1 << 15

	// DefaultBlobCacheSizeMB sizes the pluggable BlobStore's read cache,
	// styled after the teacher's DBConfig.LevelDBCacheSize default.
	DefaultBlobCacheSizeMB = 256

	// DefaultBlobHandles caps open file handles for the blob store,
	// mirroring the teacher's DBConfig.LevelDBHandles default.
	DefaultBlobHandles = 512

	// DefaultBackupIntervalMinutes is how often the backup exporter
	// (SPEC_FULL §6.N) checkpoints and ships a snapshot, expressed in
	// minutes so it is easy to source from TOML without a duration
	// parser round-trip.
	DefaultBackupIntervalMinutes = 60

	// DefaultMempoolTTLMinutes is the default for
	// config.Config.MempoolTTLMinutes, a mempool age cutoff for
	// chaintip.Tracker.EvictMempool (spec §4.F). cmd/txindexer does not
	// call EvictMempool, so unconfirmed transactions are not evicted by
	// age.
	DefaultMempoolTTLMinutes = 180
)
