package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUConfigHonoursCacheScale(t *testing.T) {
	prevScale := CacheScale
	t.Cleanup(func() { CacheScale = prevScale })

	CacheScale = 50
	c, err := NewCache(LRUConfig{CacheSize: 100})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		c.Add(StringKey(string(rune(i))), i)
	}
	lc := c.(*lruCache)
	assert.LessOrEqual(t, lc.Len(), 50)
}

func TestLRUShardConfigDistributesAcrossShards(t *testing.T) {
	c, err := NewCache(LRUShardConfig{CacheSize: 100, NumShards: 4})
	require.NoError(t, err)
	shard := c.(*lruShardCache)
	require.Len(t, shard.shards, 4)

	for i := 0; i < 20; i++ {
		c.Add(StringKey(string(rune('a'+i))), i)
	}
	total := 0
	for _, s := range shard.shards {
		total += s.Len()
	}
	assert.Equal(t, 20, total)
}

func TestCacheAddAndGetRoundtrip(t *testing.T) {
	c, err := NewCache(LRUConfig{CacheSize: 4})
	require.NoError(t, err)

	key := StringKey("a")
	c.Add(key, "value")

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "value", v)
	assert.True(t, c.Contains(key))

	c.Purge()
	assert.False(t, c.Contains(key))
}

func TestNewCacheRejectsNilConfig(t *testing.T) {
	_, err := NewCache(nil)
	assert.Error(t, err)
}
