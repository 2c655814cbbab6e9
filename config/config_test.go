package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPopulatesFromParams(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "none", cfg.ChainSourceKind)
	assert.Equal(t, ":9400", cfg.MetricsAddr)
	assert.NotZero(t, cfg.Store.BlobCacheSizeMB)
	assert.NotZero(t, cfg.UnspentCacheSize)
}

func TestLoadOverridesDefaultsFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	const doc = `
MetricsAddr = ":9500"
ChainSourceKind = "kafka"

[Store]
SQLitePath = "custom.db"
BlobStoreKind = "badger"
BlobStorePath = "custom-blobs"
BlobCacheSize = "256MiB"

[Kafka]
Brokers = ["broker-1:9092"]
GroupID = "txindexer"
BlockTopic = "blocks"
MempoolTopic = "mempool"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9500", cfg.MetricsAddr)
	assert.Equal(t, "kafka", cfg.ChainSourceKind)
	assert.Equal(t, "custom.db", cfg.Store.SQLitePath)
	assert.Equal(t, "badger", cfg.Store.BlobStoreKind)
	assert.Equal(t, 256, cfg.Store.BlobCacheSizeMB)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("NotARealField = true\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "an unrecognized TOML key must fail loudly rather than be silently ignored")
}

func TestResolveCacheSizeMB(t *testing.T) {
	mb, err := resolveCacheSizeMB("1GiB")
	require.NoError(t, err)
	assert.Equal(t, 1024, mb)

	_, err = resolveCacheSizeMB("not-a-size")
	assert.Error(t, err)
}
