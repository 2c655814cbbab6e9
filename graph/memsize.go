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

package graph

import (
	"github.com/fjl/memsize"

	"github.com/gxplatform/txindexer/metrics"
)

// MemSize estimates the in-memory footprint of the graph's nodes and
// adjacency lists via fjl/memsize's reflective scanner — the same
// library the teacher wires into its debug HTTP endpoint
// (api/debug/flags.go's memsizeui.Handler), used here headlessly to
// feed a Prometheus gauge instead of a browsable UI.
func (g *Graph) MemSize() uint64 {
	sizes := memsize.Scan(g.nodes)
	return uint64(sizes.Total)
}

// ReportMemSize recomputes MemSize and publishes it to the
// graph_mem_bytes gauge. Cheap enough to call after any batch of
// mutations, but not on every single one — indexer calls it once, after
// rebuilding the graph at startup.
func (g *Graph) ReportMemSize() {
	metrics.GraphMemBytes.Set(float64(g.MemSize()))
}
