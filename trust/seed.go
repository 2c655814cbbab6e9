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

package trust

import (
	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/storage"
)

// SeedDefaults inserts the given hex txids into the trust set via
// InsertTrust's INSERT-OR-IGNORE semantics (spec §6's "on first open, a
// hard-coded list of txids is inserted with value=1 via INSERT-OR-IGNORE
// so user edits persist across restarts"). Safe to call on every
// startup: already-present rows, and any the operator has since
// untrusted, are left untouched. r is re-synced from Store afterward by
// the caller re-running Load, or the caller may pass the same Registry
// it intends to keep using — AddTrust keeps the in-memory mirror
// consistent either way.
func SeedDefaults(store storage.Store, r *Registry, seed []string) error {
	tx, err := store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, hexTxid := range seed {
		txid, err := common.ParseTxid(hexTxid)
		if err != nil {
			return err
		}
		if r.IsTrusted(txid) {
			continue
		}
		if err := r.AddTrust(tx, txid); err != nil {
			return err
		}
	}
	return tx.Commit()
}
