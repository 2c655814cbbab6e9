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

// Package executor declares the Executor interface (spec §6): the
// collaborator that classifies downloaded bytes for ingestion and
// replays ready transactions against ancestor state. Spec §1 is
// explicit that the executor's actual replay semantics are external to
// this system ("given a downloaded transaction and the indexed states
// of its ancestors, produces a result bundle") — this package only
// fixes the shape the core's driver calls through, the same
// accept-an-interface boundary chainsource.ChainSource uses on the
// input side.
package executor

import (
	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/storage"
)

// Classification is the parse-store verdict for one downloaded
// transaction (spec §4.E's storeParsedExecutable/storeParsedNonExecutable
// split).
type Classification struct {
	Executable bool
	HasCode    bool
	Deps       []common.Txid
	Inputs     []string
	Outputs    []string
}

// OutcomeKind tags which of the three storeExecuted/setExecutionFailed/
// addMissingDeps callbacks an Execute result maps to (spec §6).
type OutcomeKind int

const (
	Executed OutcomeKind = iota
	Failed
	MissingDeps
)

// Outcome is what Execute hands back after a ready-to-execute replay
// attempt; exactly one of Result/ExtraDeps is meaningful, selected by Kind.
type Outcome struct {
	Kind      OutcomeKind
	Result    storage.ExecutionResult
	ExtraDeps []common.Txid
}

// Executor is what the core's driver calls through (spec §6).
type Executor interface {
	Classify(txid common.Txid, raw []byte) (Classification, error)
	Execute(txid common.Txid, raw []byte) (Outcome, error)
}

// Noop is the default Executor wired when no real implementation is
// configured: every transaction is classified non-executable, so the
// unexecuted graph never gains nodes that need replay. A real Executor
// is necessarily domain-specific (spec §1 treats it as external) and is
// supplied by the operator, not by this repository.
type Noop struct{}

func (Noop) Classify(common.Txid, []byte) (Classification, error) {
	return Classification{Executable: false}, nil
}

func (Noop) Execute(txid common.Txid, _ []byte) (Outcome, error) {
	return Outcome{Kind: Failed}, nil
}
