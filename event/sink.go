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

// Package event is the event sink (component H): the eight callback
// slots of spec §4.H, fired after the store transaction that produced
// them commits, never from inside it. Grounded on the teacher's
// node/sc cross-chain event subscriber idiom (a small interface of named
// On* methods, rather than a generic pub/sub bus) — the package itself
// wasn't in the retrieved file subset, so Sink is written fresh in the
// same spirit: one interface, one no-op implementation, one fanout.
package event

import "github.com/gxplatform/txindexer/common"

// Sink is implemented by every observer of the core. Delivery is
// at-least-once and, per spec §5, respects store-commit order; a
// storeExecuted for X strictly precedes any onReadyToExecute it causes.
type Sink interface {
	OnReadyToExecute(txid common.Txid)
	OnAddTransaction(txid common.Txid)
	OnDeleteTransaction(txid common.Txid)
	OnTrustTransaction(txid common.Txid)
	OnUntrustTransaction(txid common.Txid)
	OnBanTransaction(txid common.Txid)
	OnUnbanTransaction(txid common.Txid)
	OnUnindexTransaction(txid common.Txid)
}

// Nop is the zero-value Sink: every callback is a no-op, for indexer
// construction in tests that don't care about observers.
type Nop struct{}

func (Nop) OnReadyToExecute(common.Txid)     {}
func (Nop) OnAddTransaction(common.Txid)     {}
func (Nop) OnDeleteTransaction(common.Txid)  {}
func (Nop) OnTrustTransaction(common.Txid)   {}
func (Nop) OnUntrustTransaction(common.Txid) {}
func (Nop) OnBanTransaction(common.Txid)     {}
func (Nop) OnUnbanTransaction(common.Txid)   {}
func (Nop) OnUnindexTransaction(common.Txid) {}

// Multi fans every callback out to each member sink, in order. A
// misbehaving sink (e.g. a slow webhook notifier) should not be placed
// first if ordering-sensitive observers come after it.
type Multi []Sink

func (m Multi) OnReadyToExecute(txid common.Txid) {
	for _, s := range m {
		s.OnReadyToExecute(txid)
	}
}

func (m Multi) OnAddTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnAddTransaction(txid)
	}
}

func (m Multi) OnDeleteTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnDeleteTransaction(txid)
	}
}

func (m Multi) OnTrustTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnTrustTransaction(txid)
	}
}

func (m Multi) OnUntrustTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnUntrustTransaction(txid)
	}
}

func (m Multi) OnBanTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnBanTransaction(txid)
	}
}

func (m Multi) OnUnbanTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnUnbanTransaction(txid)
	}
}

func (m Multi) OnUnindexTransaction(txid common.Txid) {
	for _, s := range m {
		s.OnUnindexTransaction(txid)
	}
}
