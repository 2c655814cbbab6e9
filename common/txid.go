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

// Package common holds the small shared vocabulary types used across the
// dependency engine: transaction identifiers and the location strings that
// address jig and berry outputs.
package common

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TxidLength is the size in bytes of a transaction identifier.
const TxidLength = 32

// Txid is an opaque transaction identifier. It is rendered as a lowercase
// hex string at every boundary (storage keys, logs, event payloads); the
// fixed-size array form exists only to make it a comparable, zero-alloc map
// key for the unexecuted graph.
type Txid [TxidLength]byte

// ZeroTxid is the empty identifier, never a real transaction.
var ZeroTxid Txid

// ParseTxid decodes a lowercase (or mixed-case) hex string into a Txid.
func ParseTxid(s string) (Txid, error) {
	var t Txid
	if len(s) != TxidLength*2 {
		return t, fmt.Errorf("common: invalid txid length %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("common: invalid txid hex: %w", err)
	}
	copy(t[:], b)
	return t, nil
}

// MustParseTxid panics on malformed input; reserved for constants and tests.
func MustParseTxid(s string) Txid {
	t, err := ParseTxid(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the txid as lowercase hex.
func (t Txid) String() string {
	return hex.EncodeToString(t[:])
}

// IsZero reports whether t is the zero value.
func (t Txid) IsZero() bool {
	return t == ZeroTxid
}

// getShardIndex implements common.CacheKey so a Txid can be used directly
// as a key in a sharded LRU cache (see cache.go).
func (t Txid) getShardIndex(shardMask int) int {
	// low byte of the txid is already uniformly distributed (it is one end
	// of a cryptographic hash), so it doubles as a cheap shard selector.
	return int(t[0]) & shardMask
}

// LocationKind distinguishes the two grammars a Location string can take.
type LocationKind int

const (
	// OutputLocation addresses a transaction output: <txid>_o<n>.
	OutputLocation LocationKind = iota
	// DerivativeLocation addresses a derived state produced by the
	// executor that isn't a plain output: <txid>_d<n>.
	DerivativeLocation
)

// Location is a parsed "<txid>_o<n>" / "<txid>_d<n>" string, as produced by
// the executor and stored as the primary key of the jig and berry tables.
type Location struct {
	Txid  Txid
	Kind  LocationKind
	Index uint32
}

// ParseLocation parses a location string. The core only ever needs the txid
// prefix (for cascading deletes), but callers of the unspent index need the
// full structured form.
func ParseLocation(s string) (Location, error) {
	var loc Location
	sep := strings.IndexAny(s, "od")
	// the separator must be preceded by "_" and the txid hex
	idx := strings.LastIndex(s, "_o")
	kind := OutputLocation
	if idx < 0 {
		idx = strings.LastIndex(s, "_d")
		kind = DerivativeLocation
	}
	if idx < 0 || sep < 0 {
		return loc, fmt.Errorf("common: malformed location %q", s)
	}
	txid, err := ParseTxid(s[:idx])
	if err != nil {
		return loc, fmt.Errorf("common: malformed location %q: %w", s, err)
	}
	n, err := strconv.ParseUint(s[idx+2:], 10, 32)
	if err != nil {
		return loc, fmt.Errorf("common: malformed location index %q: %w", s, err)
	}
	loc.Txid = txid
	loc.Kind = kind
	loc.Index = uint32(n)
	return loc, nil
}

// String renders the location back to its canonical grammar.
func (l Location) String() string {
	sep := "_o"
	if l.Kind == DerivativeLocation {
		sep = "_d"
	}
	return l.Txid.String() + sep + strconv.FormatUint(uint64(l.Index), 10)
}

// TxidPrefix returns the SQL LIKE pattern ("<txid>%") used by cascading
// deletes over the jig/berry tables, per the location grammar in §6.
func TxidPrefix(t Txid) string {
	return t.String() + "%"
}
