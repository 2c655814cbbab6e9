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

// Package config is the TOML configuration loader (component I): store
// paths, the trust seed file, chain source settings, webhook URL, and
// the metrics bind address. Styled on the teacher's own
// cmd/utils/nodecmd/dumpconfigcmd.go TOML layering (strict field
// names, no silent typos) built on naoina/toml.
package config

import (
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/alecthomas/units"
	"github.com/naoina/toml"

	"github.com/gxplatform/txindexer/params"
)

// tomlSettings mirrors the teacher's own strict decoder: TOML keys must
// match Go field names exactly, and an unrecognized field is an error
// rather than silently ignored, so a typo'd config key fails loudly at
// startup instead of at the first behavior that depends on it.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see %s#%s", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field %q is not defined in %s%s", field, rt.String(), link)
	},
}

// StoreConfig names the SQLite file, the blob store backend/path, and
// the pluggable blob store's resource limits (SPEC_FULL §3).
type StoreConfig struct {
	SQLitePath    string
	BlobStoreKind string // "leveldb", "badger", or "memory"
	BlobStorePath string

	// BlobCacheSize is a human size string ("256MiB", "1GiB"), parsed by
	// resolveCacheSizeMB with alecthomas/units the way the teacher's own
	// CLI size flags accept human units rather than a raw integer.
	// BlobCacheSizeMB is the resolved value other packages read; set it
	// directly to skip the string form.
	BlobCacheSize   string
	BlobCacheSizeMB int
	BlobHandles     int
}

// KafkaConfig configures the sample ChainSource adapter
// (chainsource/kafka, SPEC_FULL §6.L). Ignored unless ChainSourceKind
// is "kafka".
type KafkaConfig struct {
	Brokers      []string
	GroupID      string
	BlockTopic   string
	MempoolTopic string
}

// WebhookConfig configures the optional webhook notifier
// (SPEC_FULL §4.H). Ignored unless URL is non-empty.
type WebhookConfig struct {
	URL       string
	LedgerDSN string
}

// BackupConfig configures the optional snapshot exporter
// (SPEC_FULL §6.N). Ignored unless Bucket is non-empty.
type BackupConfig struct {
	StageDir         string
	Bucket           string
	Prefix           string
	Region           string
	IntervalMinutes  int
	LocalFallbackDir string
}

// Config is the root TOML document for cmd/txindexer.
type Config struct {
	Store StoreConfig

	ChainSourceKind string // "kafka" or "none"
	Kafka           KafkaConfig

	Webhook WebhookConfig
	Backup  BackupConfig

	// TrustSeedFile, if set, is a newline-delimited hex txid list loaded
	// in addition to params.DefaultTrustSeed on first open.
	TrustSeedFile string

	MetricsAddr string

	UnspentCacheSize  int
	MempoolTTLMinutes int
}

// Default returns a Config populated with this system's stated
// defaults (params.Default*), for a file that only overrides what it
// needs to.
func Default() Config {
	return Config{
		Store: StoreConfig{
			SQLitePath:      "txindexer.db",
			BlobStoreKind:   "leveldb",
			BlobStorePath:   "txindexer-blobs",
			BlobCacheSizeMB: params.DefaultBlobCacheSizeMB,
			BlobHandles:     params.DefaultBlobHandles,
		},
		ChainSourceKind:   "none",
		MetricsAddr:       ":9400",
		UnspentCacheSize:  params.DefaultUnspentCacheSize,
		MempoolTTLMinutes: params.DefaultMempoolTTLMinutes,
		Backup: BackupConfig{
			IntervalMinutes: params.DefaultBackupIntervalMinutes,
		},
	}
}

// Load reads and strictly decodes a TOML file on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if cfg.Store.BlobCacheSize != "" {
		mb, err := resolveCacheSizeMB(cfg.Store.BlobCacheSize)
		if err != nil {
			return cfg, fmt.Errorf("config: store.BlobCacheSize: %w", err)
		}
		cfg.Store.BlobCacheSizeMB = mb
	}
	return cfg, nil
}

// resolveCacheSizeMB parses a human size string ("256MiB", "1GiB") into
// whole megabytes, the same unit BlobConfig.CacheSize already uses.
func resolveCacheSizeMB(human string) (int, error) {
	size, err := units.ParseBase2Bytes(human)
	if err != nil {
		return 0, err
	}
	return int(size / units.MiB), nil
}
