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

package storage

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
)

// currentSchemaVersion is the target user_version (spec §4.A): version 1
// is the initial layout (transaction bytes inline as hex TEXT), version 2
// moves bytes out to the blob store and compacts the file.
const currentSchemaVersion = 2

var migrationLogger = log.NewModuleLogger("storage/migrations")

// migrate detects the database's user_version and applies every missing
// migration in order, each inside its own write transaction, exactly as
// spec §4.A requires: "detect user_version, apply missing migrations
// inside a single write transaction each, then compact."
func migrate(db *sql.DB, blobs BlobStore) error {
	version, err := getUserVersion(db)
	if err != nil {
		return fmt.Errorf("storage: reading user_version: %w", err)
	}
	if version > currentSchemaVersion {
		// A newer process touched this file; refusing to run against an
		// unknown-to-us schema is a programmer/operator error, not
		// something this process can recover from.
		migrationLogger.Crit("store schema is newer than this binary supports", "fileVersion", version, "supported", currentSchemaVersion)
	}

	for version < currentSchemaVersion {
		migrationLogger.Info("applying schema migration", "from", version, "to", version+1)
		switch version {
		case 0:
			if err := migrateV0ToV1(db); err != nil {
				return fmt.Errorf("storage: migration 0->1: %w", err)
			}
		case 1:
			if err := migrateV1ToV2(db, blobs); err != nil {
				return fmt.Errorf("storage: migration 1->2: %w", err)
			}
		default:
			return fmt.Errorf("storage: no migration defined from version %d", version)
		}
		version++
		if err := setUserVersion(db, version); err != nil {
			return fmt.Errorf("storage: advancing user_version to %d: %w", version, err)
		}
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func setUserVersion(db *sql.DB, v int) error {
	_, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v))
	return err
}

// migrateV0ToV1 creates the initial schema of spec §6, with transaction
// bytes inline as hex TEXT (the original, pre-blob-store layout).
func migrateV0ToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tx (
			txid TEXT PRIMARY KEY,
			height INTEGER,
			time INTEGER NOT NULL,
			bytes TEXT,
			has_code INTEGER NOT NULL DEFAULT 0,
			executable INTEGER NOT NULL DEFAULT 0,
			executed INTEGER NOT NULL DEFAULT 0,
			indexed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_txid ON tx(txid)`,
		`CREATE TABLE IF NOT EXISTS deps (
			up TEXT NOT NULL,
			down TEXT NOT NULL,
			UNIQUE(up, down)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_down ON deps(down)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_up ON deps(up)`,
		`CREATE TABLE IF NOT EXISTS jig (
			location TEXT PRIMARY KEY,
			state BLOB,
			class TEXT,
			lock TEXT,
			scripthash TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jig_class ON jig(class)`,
		`CREATE TABLE IF NOT EXISTS berry (
			location TEXT PRIMARY KEY,
			state BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS spends (
			location TEXT PRIMARY KEY,
			spend_txid TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS trust (
			txid TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ban (
			txid TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS crawl (
			role TEXT UNIQUE,
			height INTEGER,
			hash TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	return tx.Commit()
}

// migrateV1ToV2 moves the tx.bytes column out to the blob store and
// compacts the file, per spec §4.A: "version 2 replaces hex-encoded
// transaction bytes with a binary column and compacts the file." We go
// one step further than a binary column: the bytes live outside SQLite
// entirely, in whichever BlobStore engine was configured, and the tx
// table keeps only a has_bytes marker.
func migrateV1ToV2(db *sql.DB, blobs BlobStore) error {
	rows, err := db.Query(`SELECT txid, bytes FROM tx WHERE bytes IS NOT NULL`)
	if err != nil {
		return err
	}
	type pending struct {
		txid common.Txid
		data []byte
	}
	var toMove []pending
	for rows.Next() {
		var txidHex, bytesHex string
		if err := rows.Scan(&txidHex, &bytesHex); err != nil {
			rows.Close()
			return err
		}
		txid, err := common.ParseTxid(txidHex)
		if err != nil {
			rows.Close()
			return err
		}
		data, err := hex.DecodeString(bytesHex)
		if err != nil {
			rows.Close()
			return err
		}
		toMove = append(toMove, pending{txid, data})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, p := range toMove {
		if err := blobs.Put(p.txid, p.data); err != nil {
			return fmt.Errorf("migrating bytes for %s to blob store: %w", p.txid, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`ALTER TABLE tx ADD COLUMN has_bytes INTEGER NOT NULL DEFAULT 0`); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE tx SET has_bytes = 1 WHERE bytes IS NOT NULL`); err != nil {
		return err
	}
	if _, err := tx.Exec(`ALTER TABLE tx DROP COLUMN bytes`); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	migrationLogger.Info("moved transaction bytes to blob store", "count", len(toMove))
	_, err = db.Exec(`VACUUM`)
	return err
}
