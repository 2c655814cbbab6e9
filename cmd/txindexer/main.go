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

// Command txindexer is the single long-running process (SPEC_FULL §1):
// it embeds the core Indexer, a Store, an optional ChainSource adapter,
// an optional webhook notifier, and an optional backup exporter, and
// drives them all from one dispatch goroutine (spec §5).
package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/gxplatform/txindexer/backup"
	"github.com/gxplatform/txindexer/chainsource"
	"github.com/gxplatform/txindexer/chainsource/kafka"
	"github.com/gxplatform/txindexer/chaintip"
	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/config"
	"github.com/gxplatform/txindexer/event"
	"github.com/gxplatform/txindexer/executor"
	"github.com/gxplatform/txindexer/indexer"
	"github.com/gxplatform/txindexer/log"
	"github.com/gxplatform/txindexer/params"
	"github.com/gxplatform/txindexer/storage"
	"github.com/gxplatform/txindexer/trust"
	"github.com/gxplatform/txindexer/webhook"
)

var logger = log.NewModuleLogger("cmd/txindexer")

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML configuration file",
	Value: "txindexer.toml",
}

func main() {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "transaction dependency engine for code transactions"
	app.Flags = []cli.Flag{configFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.Crit("fatal startup error", "err", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	blobs, err := storage.OpenBlobStore(storage.BlobConfig{
		Engine:    storage.BlobEngine(cfg.Store.BlobStoreKind),
		Dir:       cfg.Store.BlobStorePath,
		CacheSize: cfg.Store.BlobCacheSizeMB,
		Handles:   cfg.Store.BlobHandles,
	})
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}
	defer blobs.Close()

	store, err := storage.Open(cfg.Store.SQLitePath, blobs)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	readyCh := make(chan common.Txid, 256)
	sink := buildSink(cfg, readyCh)

	ix, err := indexer.New(store, sink)
	if err != nil {
		return fmt.Errorf("starting indexer: %w", err)
	}

	if err := trust.SeedDefaults(store, ix.Trust(), params.DefaultTrustSeed); err != nil {
		return fmt.Errorf("seeding default trust set: %w", err)
	}
	if cfg.TrustSeedFile != "" {
		seed, err := loadTrustSeedFile(cfg.TrustSeedFile)
		if err != nil {
			return fmt.Errorf("loading trust seed file: %w", err)
		}
		if err := trust.SeedDefaults(store, ix.Trust(), seed); err != nil {
			return fmt.Errorf("seeding configured trust set: %w", err)
		}
	}

	tip := chaintip.New(ix)

	var source chainsource.ChainSource
	switch cfg.ChainSourceKind {
	case "kafka":
		source, err = kafka.Open(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			GroupID:      cfg.Kafka.GroupID,
			BlockTopic:   cfg.Kafka.BlockTopic,
			MempoolTopic: cfg.Kafka.MempoolTopic,
		})
		if err != nil {
			return fmt.Errorf("opening kafka chain source: %w", err)
		}
	case "none", "":
		source = nil
	default:
		return fmt.Errorf("unknown chainSourceKind %q", cfg.ChainSourceKind)
	}
	if source != nil {
		defer source.Close()
	}

	var backupExporter *backup.Exporter
	if cfg.Backup.Bucket != "" {
		backupExporter, err = backup.New(store, backup.Config{
			StageDir: cfg.Backup.StageDir,
			Bucket:   cfg.Backup.Bucket,
			Prefix:   cfg.Backup.Prefix,
			Region:   cfg.Backup.Region,
			Interval: time.Duration(cfg.Backup.IntervalMinutes) * time.Minute,
		})
		if err != nil {
			return fmt.Errorf("starting backup exporter: %w", err)
		}
		go backupExporter.Run()
		defer backupExporter.Stop()
	}

	go serveMetrics(cfg.MetricsAddr)

	d := &dispatcher{
		indexer:  ix,
		tip:      tip,
		source:   source,
		executor: executor.Noop{},
		readyCh:  readyCh,
	}
	return d.run()
}

// buildSink wires the webhook notifier (if configured) alongside an
// internal sink that forwards onReadyToExecute fires onto readyCh, so
// the dispatch goroutine — not the sink callback's own stack — is what
// actually calls back into the Executor (spec §5: the core's own
// goroutine must stay the sole caller of Indexer methods).
func buildSink(cfg config.Config, readyCh chan<- common.Txid) event.Sink {
	sinks := event.Multi{readyQueueSink{readyCh}}
	if cfg.Webhook.URL != "" {
		var ledger *webhook.Ledger
		if cfg.Webhook.LedgerDSN != "" {
			l, err := webhook.OpenLedger(cfg.Webhook.LedgerDSN)
			if err != nil {
				logger.Error("failed to open webhook delivery ledger, continuing without one", "err", err)
			} else {
				ledger = l
			}
		}
		sinks = append(sinks, webhook.New(cfg.Webhook.URL, ledger))
	}
	return sinks
}

// readyQueueSink implements event.Sink, forwarding only
// OnReadyToExecute; every other callback is a no-op. It exists purely
// to decouple the graph's synchronous event firing from the executor
// hand-off, which happens later on the dispatch goroutine.
type readyQueueSink struct {
	readyCh chan<- common.Txid
}

func (s readyQueueSink) OnReadyToExecute(txid common.Txid) {
	select {
	case s.readyCh <- txid:
	default:
		logger.Warn("ready queue full, dropping ready-to-execute notification; will be recomputed on next touch", "txid", txid)
	}
}
func (readyQueueSink) OnAddTransaction(common.Txid)     {}
func (readyQueueSink) OnDeleteTransaction(common.Txid)  {}
func (readyQueueSink) OnTrustTransaction(common.Txid)   {}
func (readyQueueSink) OnUntrustTransaction(common.Txid) {}
func (readyQueueSink) OnBanTransaction(common.Txid)     {}
func (readyQueueSink) OnUnbanTransaction(common.Txid)   {}
func (readyQueueSink) OnUnindexTransaction(common.Txid) {}

func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server exited", "err", err)
	}
}

// blockPollInterval is how often the dispatcher asks the ChainSource for
// the next block when it isn't pushed over a channel (sources like
// chainsource/kafka buffer blocks internally and are polled).
const blockPollInterval = 2 * time.Second

// dispatcher is the single goroutine that owns every call into the
// Indexer/Tracker (spec §5's "callers must serialize calls"), matching
// the teacher's own work/worker.go single-consumer-loop idiom. It also
// owns the Executor hand-off: classifying newly ingested bytes and
// replaying ready-to-execute transactions, both strictly serialized
// with every other Indexer call.
type dispatcher struct {
	indexer  *indexer.Indexer
	tip      *chaintip.Tracker
	source   chainsource.ChainSource
	executor executor.Executor
	readyCh  <-chan common.Txid
}

func (d *dispatcher) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Crit("invariant violation, terminating", "panic", r)
			err = fmt.Errorf("invariant violation: %v", r)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var mempool <-chan chainsource.MempoolTx
	if d.source != nil {
		mempool = d.source.Mempool()
	}

	ticker := time.NewTicker(blockPollInterval)
	defer ticker.Stop()
	if d.source == nil {
		ticker.Stop()
	}

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down on signal")
			return nil
		case mtx, ok := <-mempool:
			if !ok {
				mempool = nil
				continue
			}
			d.handleMempoolTx(mtx)
		case txid := <-d.readyCh:
			d.handleReady(txid)
		case <-ticker.C:
			d.pollBlocks()
		}
	}
}

func (d *dispatcher) handleMempoolTx(mtx chainsource.MempoolTx) {
	if err := d.indexer.AddNew(mtx.Txid, storage.HeightMempool); err != nil {
		logger.Error("failed to add mempool transaction", "txid", mtx.Txid, "err", err)
		return
	}
	d.classifyAndStore(mtx.Txid, mtx.Raw)
}

// pollBlocks drains every block currently buffered by the ChainSource,
// advancing the chain tip and ingesting each transaction, rewinding on
// reorg per spec §4.F before retrying.
func (d *dispatcher) pollBlocks() {
	for {
		height, _, err := d.tip.Height()
		if err != nil {
			logger.Error("failed to read chain tip height", "err", err)
			return
		}
		hash, err := d.tip.Hash()
		if err != nil {
			logger.Error("failed to read chain tip hash", "err", err)
			return
		}

		block, reorg, ok, err := d.source.GetNextBlock(height, hash)
		if err != nil {
			logger.Error("chain source error", "err", err)
			return
		}
		if reorg {
			if err := d.tip.Rewind(block.Height); err != nil {
				logger.Error("failed to rewind on reorg", "height", block.Height, "err", err)
				return
			}
			if err := d.tip.Advance(block.Height, block.PrevHash); err != nil {
				logger.Error("failed to advance tip after rewind", "height", block.Height, "err", err)
				return
			}
			continue
		}
		if !ok {
			return
		}

		for _, txid := range block.Txids {
			if err := d.indexer.AddNew(txid, storage.Height(block.Height)); err != nil {
				logger.Error("failed to add block transaction", "txid", txid, "err", err)
				continue
			}
			d.classifyAndStore(txid, block.RawTxns[txid])
		}
		if err := d.tip.Advance(block.Height, block.Hash); err != nil {
			logger.Error("failed to advance chain tip", "height", block.Height, "err", err)
		}
	}
}

// classifyAndStore runs Executor.Classify and applies the verdict via
// the matching parse-store operation (spec §6's "the driver calls
// addNew(txid) then one of the parse-store operations").
func (d *dispatcher) classifyAndStore(txid common.Txid, raw []byte) {
	class, err := d.executor.Classify(txid, raw)
	if err != nil {
		logger.Error("classification failed", "txid", txid, "err", err)
		return
	}
	if !class.Executable {
		if err := d.indexer.StoreParsedNonExecutable(txid, raw, class.Inputs, class.Outputs); err != nil {
			logger.Error("storeParsedNonExecutable failed", "txid", txid, "err", err)
		}
		return
	}
	if err := d.indexer.StoreParsedExecutable(txid, raw, class.HasCode, class.Deps, class.Inputs, class.Outputs); err != nil {
		logger.Error("storeParsedExecutable failed", "txid", txid, "err", err)
	}
}

// handleReady implements the executor side of the Executor interface
// (spec §6): fetch bytes, replay, call back with exactly one outcome.
func (d *dispatcher) handleReady(txid common.Txid) {
	rawHex, err := d.indexer.Store().GetTransactionHex(txid)
	if err != nil {
		logger.Error("failed to fetch bytes for ready transaction", "txid", txid, "err", err)
		return
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		logger.Error("stored bytes are not valid hex", "txid", txid, "err", err)
		return
	}

	outcome, err := d.executor.Execute(txid, raw)
	if err != nil {
		logger.Error("executor returned an error, marking execution failed", "txid", txid, "err", err)
		if err := d.indexer.SetExecutionFailed(txid); err != nil {
			logger.Error("setExecutionFailed failed", "txid", txid, "err", err)
		}
		return
	}

	switch outcome.Kind {
	case executor.Executed:
		if err := d.indexer.StoreExecuted(txid, outcome.Result); err != nil {
			logger.Error("storeExecuted failed", "txid", txid, "err", err)
		}
	case executor.MissingDeps:
		if err := d.indexer.AddMissingDeps(txid, outcome.ExtraDeps); err != nil {
			logger.Error("addMissingDeps failed", "txid", txid, "err", err)
		}
	default:
		if err := d.indexer.SetExecutionFailed(txid); err != nil {
			logger.Error("setExecutionFailed failed", "txid", txid, "err", err)
		}
	}
}

func loadTrustSeedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seed = append(seed, line)
	}
	return seed, nil
}
