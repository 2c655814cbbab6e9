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

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/dgraph-io/badger"
	"github.com/pbnjay/memory"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/metrics"
)

// BlobStore holds the raw bytes column split out of the relational tables
// (SPEC_FULL §4.A): one blob per txid. It is deliberately a narrower
// interface than the teacher's DBManager — only Get/Put/Delete/Close are
// needed because nothing in the core ever ranges over blobs.
type BlobStore interface {
	Get(txid common.Txid) ([]byte, bool, error)
	Put(txid common.Txid, data []byte) error
	Delete(txid common.Txid) error
	Close() error
}

// BlobEngine selects the backing engine, mirroring the teacher's DBType
// enum (LEVELDB/BADGER/MEMDB in storage/database).
type BlobEngine string

const (
	BlobEngineLevelDB BlobEngine = "leveldb"
	BlobEngineBadger  BlobEngine = "badger"
	BlobEngineMemory  BlobEngine = "memory"
)

// BlobConfig configures a blob store. CacheSize is in MiB; 0 asks
// OpenBlobStore to auto-size it from total system memory; anything
// still below 16 after that (including on a memory-read failure) is
// floored to 16 by the LevelDB constructor. The Badger and memory
// engines do not use CacheSize.
type BlobConfig struct {
	Engine    BlobEngine
	Dir       string
	CacheSize int
	Handles   int
}

// autoCacheMiB picks a cache size as a fraction of total system memory,
// the same role the teacher's own DBConfig auto-sizing plays for its
// LevelDB cache, grounded on the pbnjay/memory dependency the teacher
// pulls in for exactly this total-RAM query.
func autoCacheMiB() int {
	total := memory.TotalMemory()
	if total == 0 {
		return 0
	}
	const fraction = 16 // 1/16th of system RAM
	return int(total / fraction / (1 << 20))
}

func OpenBlobStore(cfg BlobConfig) (BlobStore, error) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = autoCacheMiB()
	}
	switch cfg.Engine {
	case BlobEngineLevelDB:
		return newLevelDBBlobStore(cfg)
	case BlobEngineBadger:
		return newBadgerBlobStore(cfg)
	case BlobEngineMemory, "":
		return newMemoryBlobStore(), nil
	default:
		return nil, errUnknownEngine(cfg.Engine)
	}
}

type errUnknownEngine BlobEngine

func (e errUnknownEngine) Error() string {
	return "storage: unknown blob engine " + string(e)
}

// levelDBBlobStore is grounded directly on the teacher's levelDB wrapper
// (storage/database/leveldb_database.go): same option construction, same
// set of rcrowley/go-metrics meters, same recover-on-corruption open path.
type levelDBBlobStore struct {
	db     *leveldb.DB
	meters *metrics.EngineMeters
	hot    *fastcache.Cache
	logger *log.Logger
}

func newLevelDBBlobStore(cfg BlobConfig) (*levelDBBlobStore, error) {
	logger := log.NewModuleLogger("storage/blob/leveldb")
	cacheMiB, handles := cfg.CacheSize, cfg.Handles
	if cacheMiB < 16 {
		cacheMiB = 16
	}
	if handles < 16 {
		handles = 16
	}
	opts := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cacheMiB / 2 * opt.MiB,
		WriteBuffer:            cacheMiB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(cfg.Dir, opts)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(cfg.Dir, nil)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("opened leveldb blob store", "dir", cfg.Dir, "cacheMiB", cacheMiB, "handles", handles)
	return &levelDBBlobStore{
		db:     db,
		meters: metrics.NewEngineMeters("blobstore_leveldb"),
		hot:    fastcache.New(cacheMiB * 1024 * 1024 / 4),
		logger: logger,
	}, nil
}

func (s *levelDBBlobStore) Get(txid common.Txid) ([]byte, bool, error) {
	key := txid[:]
	if v, ok := s.hot.HasGet(nil, key); ok {
		return v, true, nil
	}
	s.meters.DiskRead.Mark(1)
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.hot.Set(key, v)
	return v, true, nil
}

func (s *levelDBBlobStore) Put(txid common.Txid, data []byte) error {
	s.meters.DiskWrite.Mark(int64(len(data)))
	key := txid[:]
	if err := s.db.Put(key, data, nil); err != nil {
		return err
	}
	s.hot.Set(key, data)
	return nil
}

func (s *levelDBBlobStore) Delete(txid common.Txid) error {
	key := txid[:]
	s.hot.Del(key)
	return s.db.Delete(key, nil)
}

func (s *levelDBBlobStore) Close() error {
	return s.db.Close()
}

// badgerBlobStore is grounded on the teacher's storage/database/badger_database.go.
type badgerBlobStore struct {
	db     *badger.DB
	meters *metrics.EngineMeters
	logger *log.Logger
}

func newBadgerBlobStore(cfg BlobConfig) (*badgerBlobStore, error) {
	logger := log.NewModuleLogger("storage/blob/badger")
	opts := badger.DefaultOptions
	opts.Dir = cfg.Dir
	opts.ValueDir = cfg.Dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("opened badger blob store", "dir", cfg.Dir)
	return &badgerBlobStore{db: db, meters: metrics.NewEngineMeters("blobstore_badger"), logger: logger}, nil
}

func (s *badgerBlobStore) Get(txid common.Txid) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(txid[:])
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			out = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	s.meters.DiskRead.Mark(1)
	return out, out != nil, nil
}

func (s *badgerBlobStore) Put(txid common.Txid, data []byte) error {
	s.meters.DiskWrite.Mark(int64(len(data)))
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(txid[:], data)
	})
}

func (s *badgerBlobStore) Delete(txid common.Txid) error {
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Delete(txid[:])
	})
}

func (s *badgerBlobStore) Close() error {
	return s.db.Close()
}

// memoryBlobStore backs tests and the "ephemeral, driver replays on
// restart" deployment mode (spec §4.A advisory note), the same role the
// teacher's MemDatabase plays for NewMemoryDBManager.
type memoryBlobStore struct {
	mu   sync.RWMutex
	data map[common.Txid][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{data: make(map[common.Txid][]byte)}
}

func (s *memoryBlobStore) Get(txid common.Txid) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[txid]
	return v, ok, nil
}

func (s *memoryBlobStore) Put(txid common.Txid, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[txid] = append([]byte(nil), data...)
	return nil
}

func (s *memoryBlobStore) Delete(txid common.Txid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, txid)
	return nil
}

func (s *memoryBlobStore) Close() error { return nil }
