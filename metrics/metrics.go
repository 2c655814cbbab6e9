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

// Package metrics wires two metrics stacks the teacher carries side by
// side: rcrowley/go-metrics, used the way the teacher's storage/database
// package uses it (per-engine throughput meters registered on the blob
// store), and prometheus/client_golang, used for the process-wide gauges
// and counters that matter to an operator (queue depth, ready-root fan-out,
// webhook delivery outcomes).
package metrics

import (
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// NewEngineMeters returns the five meters the teacher's levelDB/badger
// backends register on open (compaction time/read/write, disk read/write),
// all namespaced under the given blob store engine name.
type EngineMeters struct {
	CompTime  gometrics.Meter
	CompRead  gometrics.Meter
	CompWrite gometrics.Meter
	DiskRead  gometrics.Meter
	DiskWrite gometrics.Meter
}

func NewEngineMeters(engine string) *EngineMeters {
	return &EngineMeters{
		CompTime:  gometrics.NewRegisteredMeter(engine+"/compact/time", gometrics.DefaultRegistry),
		CompRead:  gometrics.NewRegisteredMeter(engine+"/compact/read", gometrics.DefaultRegistry),
		CompWrite: gometrics.NewRegisteredMeter(engine+"/compact/write", gometrics.DefaultRegistry),
		DiskRead:  gometrics.NewRegisteredMeter(engine+"/disk/read", gometrics.DefaultRegistry),
		DiskWrite: gometrics.NewRegisteredMeter(engine+"/disk/write", gometrics.DefaultRegistry),
	}
}

// Prometheus collectors for the core engine. QueuedForExecution mirrors
// numQueuedForExecution (spec §4.D, invariant 2); ReadyRootsTotal counts
// onReadyToExecute firings; GraphMemBytes is the graph's fjl/memsize
// estimate (see graph/memsize.go).
var (
	QueuedForExecution = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txindexer",
		Subsystem: "graph",
		Name:      "queued_for_execution",
		Help:      "Number of unexecuted-graph nodes currently ready to execute.",
	})
	ReadyRootsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "txindexer",
		Subsystem: "graph",
		Name:      "ready_roots_total",
		Help:      "Total onReadyToExecute firings since process start.",
	})
	UnexecutedNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txindexer",
		Subsystem: "graph",
		Name:      "unexecuted_nodes",
		Help:      "Number of nodes currently present in the unexecuted graph.",
	})
	GraphMemBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txindexer",
		Subsystem: "graph",
		Name:      "mem_bytes",
		Help:      "Estimated in-memory size of the unexecuted graph.",
	})
	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "txindexer",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook delivery attempts by outcome.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(QueuedForExecution, ReadyRootsTotal, UnexecutedNodes, GraphMemBytes, WebhookDeliveries)
}
