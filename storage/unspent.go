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
	"context"
	"hash"
	"hash/fnv"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/steakknife/bloomfilter"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
)

// unspentState is what the two cache tiers hold per location: whether the
// output is currently unspent, and (if spent) by whom. A cached "spent by
// ZeroTxid" entry is how we cache a negative GetSpend lookup.
type unspentState struct {
	Spent     bool
	SpendTxid common.Txid
}

// UnspentIndex is the two-tier cache in front of Store's spends table (spec
// §4.G): an in-process LRU (common.Cache, backed by hashicorp/golang-lru)
// as the hot tier, and an optional shared redis tier so a fleet of readers
// doesn't each cold-start against SQLite. Grounded on the teacher's
// common/cache.go usage pattern in blockchain/state for account caching,
// widened here with a remote tier the teacher doesn't need because its
// state cache is single-process.
type UnspentIndex struct {
	store Store
	local common.Cache
	redis *redis.Client
	ttl   time.Duration
	log   *log.Logger

	// spent is a probabilistic "has this process ever seen this location
	// marked spent" filter: a miss means the redis round trip is skippable
	// since it can only come back negative, the same false-positives-only
	// shortcut the teacher uses a bloom filter for on its own
	// high-cardinality membership checks. It never gets to skip the
	// Store, since it starts cold and knows nothing about spends from
	// before this process started.
	spent *bloomfilter.Filter
}

// UnspentIndexConfig configures the cache tiers. RedisAddr == "" disables
// the shared tier and falls back to local-only, the mode every unit test
// runs in.
type UnspentIndexConfig struct {
	LocalCacheSize int
	RedisAddr      string
	RedisDB        int
	TTL            time.Duration
}

func NewUnspentIndex(store Store, cfg UnspentIndexConfig) (*UnspentIndex, error) {
	size := cfg.LocalCacheSize
	if size <= 0 {
		size = 65536
	}
	local, err := common.NewCache(common.LRUConfig{CacheSize: size})
	if err != nil {
		return nil, err
	}

	spent, err := bloomfilter.NewOptimal(uint64(size*4), 0.001)
	if err != nil {
		return nil, err
	}

	idx := &UnspentIndex{
		store: store,
		local: local,
		ttl:   cfg.TTL,
		log:   log.NewModuleLogger("storage/unspent"),
		spent: spent,
	}
	if idx.ttl <= 0 {
		idx.ttl = 10 * time.Minute
	}
	if cfg.RedisAddr != "" {
		idx.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}
	return idx, nil
}

// IsUnspent reports whether loc has not yet been recorded as spent,
// checking the local tier, then the bloom filter to decide whether redis
// is worth a round trip, then falling through to the Store and populating
// all three tiers on the way back up.
func (u *UnspentIndex) IsUnspent(loc string) (bool, error) {
	if v, ok := u.local.Get(common.StringKey(loc)); ok {
		return !v.(unspentState).Spent, nil
	}

	// A bloom filter miss means loc has never been marked spent by this
	// process; it says nothing about state persisted before this process
	// started, so the remote tier can be skipped (definitely not worth a
	// round trip) but the Store below still has to be the final word.
	if u.redis != nil && u.spent.Contains(locationHash(loc)) {
		if state, ok := u.getRedis(loc); ok {
			u.local.Add(common.StringKey(loc), state)
			return !state.Spent, nil
		}
	}

	spendTxid, spent, err := u.store.GetSpend(loc)
	if err != nil {
		return false, err
	}
	state := unspentState{Spent: spent, SpendTxid: spendTxid}
	u.local.Add(common.StringKey(loc), state)
	u.setRedis(loc, state)
	if spent {
		u.spent.Add(locationHash(loc))
	}
	return !spent, nil
}

// MarkSpent invalidates loc in both tiers and records the new spend in the
// local tier eagerly, so a cache miss on the next read doesn't race ahead
// of the Store commit that made it spent.
func (u *UnspentIndex) MarkSpent(loc string, by common.Txid) {
	state := unspentState{Spent: true, SpendTxid: by}
	u.local.Add(common.StringKey(loc), state)
	u.setRedis(loc, state)
	u.spent.Add(locationHash(loc))
}

// locationHash turns loc into the hash.Hash64 bloomfilter.Filter expects,
// using the same fnv-1a choice the teacher uses for its own non-keyed
// string hashing.
func locationHash(loc string) hash.Hash64 {
	h := fnv.New64a()
	h.Write([]byte(loc))
	return h
}

// MarkUnspent records loc as unspent in both tiers, undoing an earlier
// MarkSpent (e.g. after the transaction that consumed loc is rewound out
// of the chain).
func (u *UnspentIndex) MarkUnspent(loc string) {
	state := unspentState{Spent: false}
	u.local.Add(common.StringKey(loc), state)
	u.setRedis(loc, state)
}

// Invalidate drops loc from both tiers without asserting a new state,
// for when the row itself is gone rather than merely re-spent; the next
// IsUnspent for loc reads through to the Store.
func (u *UnspentIndex) Invalidate(loc string) {
	if r, ok := u.local.(interface{ Remove(common.CacheKey) }); ok {
		r.Remove(common.StringKey(loc))
	} else {
		u.local.Purge()
	}
	if u.redis != nil {
		if err := u.redis.Del(loc).Err(); err != nil {
			u.log.Warn("redis invalidate failed", "location", loc, "err", err)
		}
	}
}

func (u *UnspentIndex) getRedis(loc string) (unspentState, bool) {
	val, err := u.redis.Get(loc).Result()
	if err == redis.Nil {
		return unspentState{}, false
	}
	if err != nil {
		u.log.Warn("redis get failed, falling back to store", "location", loc, "err", err)
		return unspentState{}, false
	}
	if val == "" {
		return unspentState{Spent: false}, true
	}
	txid, err := common.ParseTxid(val)
	if err != nil {
		return unspentState{}, false
	}
	return unspentState{Spent: true, SpendTxid: txid}, true
}

func (u *UnspentIndex) setRedis(loc string, state unspentState) {
	if u.redis == nil {
		return
	}
	val := ""
	if state.Spent {
		val = state.SpendTxid.String()
	}
	if err := u.redis.Set(loc, val, u.ttl).Err(); err != nil {
		u.log.Warn("redis set failed", "location", loc, "err", err)
	}
}

// Close releases the redis client, if one was configured.
func (u *UnspentIndex) Close() error {
	if u.redis == nil {
		return nil
	}
	return u.redis.Close()
}

// Ping verifies the redis tier is reachable, used by health checks.
func (u *UnspentIndex) Ping(ctx context.Context) error {
	if u.redis == nil {
		return nil
	}
	return u.redis.WithContext(ctx).Ping().Err()
}
