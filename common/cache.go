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

package common

import (
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gxplatform/txindexer/log"
)

// CacheType selects the eviction strategy behind a Cache built from a
// CacheConfiger. The unspent index (storage/unspent.go) uses LRUCacheType;
// the sharded and ARC variants exist for call sites with hotter, wider
// keyspaces (e.g. a future unspent cache sharded across txid prefixes).
type CacheType int

const (
	LRUCacheType CacheType = iota
	LRUShardCacheType
	ARCCacheType
)

var DefaultCacheType CacheType = LRUCacheType

// CacheScale lets an operator shrink or grow every configured cache size by
// a uniform percentage without touching individual config values.
var CacheScale int = 100

var logger = log.NewModuleLogger("common")

// CacheKey is implemented by any type usable as a sharded cache key; Txid
// (txid.go) implements it via its leading byte.
type CacheKey interface {
	getShardIndex(shardMask int) int
}

// StringKey lets callers outside this package key a Cache by an arbitrary
// string (the unspent index keys by location string, not by Txid).
type StringKey string

func (k StringKey) getShardIndex(shardMask int) int {
	if len(k) == 0 {
		return 0
	}
	return int(k[0]) & shardMask
}

// Cache is the minimal surface every variant below implements.
type Cache interface {
	Add(key CacheKey, value interface{}) (evicted bool)
	Get(key CacheKey) (value interface{}, ok bool)
	Contains(key CacheKey) bool
	Purge()
}

type lruCache struct {
	lru *lru.Cache
}

func (c *lruCache) Add(key CacheKey, value interface{}) (evicted bool) {
	return c.lru.Add(key, value)
}

func (c *lruCache) Get(key CacheKey) (value interface{}, ok bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Contains(key CacheKey) bool {
	return c.lru.Contains(key)
}

func (c *lruCache) Purge() {
	c.lru.Purge()
}

func (c *lruCache) Remove(key CacheKey) {
	c.lru.Remove(key)
}

func (c *lruCache) Len() int {
	return c.lru.Len()
}

type arcCache struct {
	arc *lru.ARCCache
}

func (c *arcCache) Add(key CacheKey, value interface{}) (evicted bool) {
	c.arc.Add(key, value)
	return true
}

func (c *arcCache) Get(key CacheKey) (value interface{}, ok bool) {
	return c.arc.Get(key)
}

func (c *arcCache) Contains(key CacheKey) bool {
	return c.arc.Contains(key)
}

func (c *arcCache) Purge() {
	c.arc.Purge()
}

func (c *arcCache) Remove(key CacheKey) {
	c.arc.Remove(key)
}

func (c *arcCache) Len() int {
	return c.arc.Len()
}

type lruShardCache struct {
	shards         []*lru.Cache
	shardIndexMask int
}

func (c *lruShardCache) Add(key CacheKey, val interface{}) (evicted bool) {
	return c.shards[key.getShardIndex(c.shardIndexMask)].Add(key, val)
}

func (c *lruShardCache) Get(key CacheKey) (value interface{}, ok bool) {
	return c.shards[key.getShardIndex(c.shardIndexMask)].Get(key)
}

func (c *lruShardCache) Contains(key CacheKey) bool {
	return c.shards[key.getShardIndex(c.shardIndexMask)].Contains(key)
}

func (c *lruShardCache) Purge() {
	for _, shard := range c.shards {
		s := shard
		go s.Purge()
	}
}

// NewCache builds a Cache from a config value; the config itself picks the
// implementation, so callers never switch on CacheType directly.
func NewCache(config CacheConfiger) (Cache, error) {
	if config == nil {
		return nil, errors.New("common: cache config is nil")
	}
	return config.newCache()
}

type CacheConfiger interface {
	newCache() (Cache, error)
}

type LRUConfig struct {
	CacheSize int
}

func (c LRUConfig) newCache() (Cache, error) {
	size := c.CacheSize * CacheScale / 100
	l, err := lru.New(size)
	return &lruCache{l}, err
}

type LRUShardConfig struct {
	CacheSize int
	NumShards int
}

const (
	minShardSize = 10
	minNumShards = 2
)

func (c LRUShardConfig) newCache() (Cache, error) {
	size := c.CacheSize * CacheScale / 100
	if size < 1 {
		logger.Error("cache size resolved to a non-positive value", "cacheSize", size, "cacheScale", CacheScale)
		return nil, errors.New("common: cache size must be positive")
	}

	numShards := c.numShardsPowOf2(size)
	if c.NumShards != numShards {
		logger.Warn("shard count rounded to a power of two", "requested", c.NumShards, "actual", numShards)
	}
	if size%numShards != 0 {
		logger.Warn("cache size is not evenly divisible by shard count", "requested", size, "used", size-(size%numShards))
	}

	shard := &lruShardCache{shards: make([]*lru.Cache, numShards), shardIndexMask: numShards - 1}
	shardSize := size / numShards
	for i := 0; i < numShards; i++ {
		var err error
		if shard.shards[i], err = lru.NewWithEvict(shardSize, nil); err != nil {
			return nil, err
		}
	}
	return shard, nil
}

func (c LRUShardConfig) numShardsPowOf2(size int) int {
	maxShards := float64(size / minShardSize)
	n := int(math.Min(float64(c.NumShards), maxShards))

	prev := minNumShards
	for n > minNumShards {
		prev = n
		n = n & (n - 1)
	}
	return prev
}

type ARCConfig struct {
	CacheSize int
}

func (c ARCConfig) newCache() (Cache, error) {
	arc, err := lru.NewARC(c.CacheSize)
	return &arcCache{arc}, err
}
