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
	"sync"

	_ "modernc.org/sqlite"

	"github.com/gxplatform/txindexer/common"
	"github.com/gxplatform/txindexer/log"
)

var sqliteLogger = log.NewModuleLogger("storage/sqlite")

// sqliteStore is the concrete Store (SPEC_FULL §4.A): the relational
// tables of spec §6 over database/sql + modernc.org/sqlite, fronting a
// pluggable BlobStore for the bytes column.
type sqliteStore struct {
	db    *sql.DB
	blobs BlobStore

	// txMu enforces "nested transactions are forbidden" (spec §5): Begin
	// acquires it, Commit/Rollback release it. A second Begin before the
	// first Tx ends is a programmer error, not a condition to wait out.
	txMu sync.Mutex
}

// Open opens (creating if absent) a SQLite-backed Store at path, applying
// any pending schema migrations, and wires it to the given blob engine.
func Open(path string, blobs BlobStore) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite write-serializes regardless; avoid pool contention on WAL checkpoints.

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = NORMAL`,
		`PRAGMA cache_size = -64000`, // ~64MiB page cache, per spec's "large cache" hint
		`PRAGMA foreign_keys = OFF`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: applying %q: %w", pragma, err)
		}
	}

	if err := migrate(db, blobs); err != nil {
		db.Close()
		return nil, err
	}

	sqliteLogger.Info("store opened", "path", path)
	return &sqliteStore{db: db, blobs: blobs}, nil
}

func (s *sqliteStore) Begin() (Tx, error) {
	if !s.txMu.TryLock() {
		sqliteLogger.Crit("nested store transaction attempted")
	}
	sqltx, err := s.db.Begin()
	if err != nil {
		s.txMu.Unlock()
		return nil, err
	}
	return &sqliteTx{sqltx: sqltx, store: s}, nil
}

func (s *sqliteStore) Close() error {
	if err := s.blobs.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func (s *sqliteStore) Checkpoint(destPath string) error {
	_, err := s.db.Exec(`VACUUM INTO ?`, destPath)
	return err
}

func (s *sqliteStore) GetTransaction(txid common.Txid) (*TxRecord, error) {
	return scanTxRecord(s.db.QueryRow(selectTxSQL, txid.String()), txid)
}

const selectTxSQL = `SELECT height, time, has_bytes, has_code, executable, executed, indexed FROM tx WHERE txid = ?`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTxRecord(row scanner, txid common.Txid) (*TxRecord, error) {
	var height sql.NullInt64
	var t int64
	var hasBytes, hasCode, executable, executed, indexed int
	err := row.Scan(&height, &t, &hasBytes, &hasCode, &executable, &executed, &indexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h := HeightUnknown
	if height.Valid {
		h = Height(height.Int64)
	}
	return &TxRecord{
		Txid:       txid,
		Height:     h,
		Time:       t,
		HasBytes:   hasBytes != 0,
		HasCode:    HasCode(hasCode),
		Executable: executable != 0,
		Executed:   executed != 0,
		Indexed:    indexed != 0,
	}, nil
}

func (s *sqliteStore) GetUnexecutedCandidates() ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT txid FROM tx WHERE (executable = 1 AND executed = 0) OR has_bytes = 0`)
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func scanTxidList(rows *sql.Rows) ([]common.Txid, error) {
	defer rows.Close()
	var out []common.Txid
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		t, err := common.ParseTxid(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetEdgesAmongCandidates() ([][2]common.Txid, error) {
	rows, err := s.db.Query(`
		SELECT d.up, d.down FROM deps d
		JOIN tx t ON t.txid = d.down
		WHERE (t.executable = 1 AND t.executed = 0) OR t.has_bytes = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]common.Txid
	for rows.Next() {
		var upHex, downHex string
		if err := rows.Scan(&upHex, &downHex); err != nil {
			return nil, err
		}
		up, err := common.ParseTxid(upHex)
		if err != nil {
			return nil, err
		}
		down, err := common.ParseTxid(downHex)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]common.Txid{up, down})
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetUpstream(down common.Txid) ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT up FROM deps WHERE down = ?`, down.String())
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (s *sqliteStore) GetDownstream(up common.Txid) ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT down FROM deps WHERE up = ?`, up.String())
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (s *sqliteStore) IsTrusted(txid common.Txid) (bool, error) {
	return existsQuery(s.db, `SELECT 1 FROM trust WHERE txid = ?`, txid.String())
}

func (s *sqliteStore) IsBanned(txid common.Txid) (bool, error) {
	return existsQuery(s.db, `SELECT 1 FROM ban WHERE txid = ?`, txid.String())
}

// rowQueryer is the common subset of *sql.DB and *sql.Tx existsQuery needs,
// so it can run against either the pool or an open transaction.
type rowQueryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func existsQuery(db rowQueryer, query string, args ...interface{}) (bool, error) {
	var one int
	err := db.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *sqliteStore) GetAllTrusted() ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT txid FROM trust`)
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (s *sqliteStore) GetAllBanned() ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT txid FROM ban`)
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (s *sqliteStore) GetHeight() (int64, bool, error) {
	var h sql.NullInt64
	err := s.db.QueryRow(`SELECT height FROM crawl WHERE role = 'tip'`).Scan(&h)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return h.Int64, h.Valid, nil
}

func (s *sqliteStore) GetHash() (string, error) {
	var h sql.NullString
	err := s.db.QueryRow(`SELECT hash FROM crawl WHERE role = 'tip'`).Scan(&h)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return h.String, err
}

func (s *sqliteStore) GetTransactionsAboveHeight(height int64) ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT txid FROM tx WHERE height > ?`, height)
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (s *sqliteStore) GetMempoolTransactionsBeforeTime(t int64) ([]common.Txid, error) {
	rows, err := s.db.Query(`SELECT txid FROM tx WHERE height = ? AND time < ?`, int64(HeightMempool), t)
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (s *sqliteStore) GetSpend(loc string) (common.Txid, bool, error) {
	var spendHex sql.NullString
	err := s.db.QueryRow(`SELECT spend_txid FROM spends WHERE location = ?`, loc).Scan(&spendHex)
	if err == sql.ErrNoRows || !spendHex.Valid {
		return common.ZeroTxid, false, nil
	}
	if err != nil {
		return common.ZeroTxid, false, err
	}
	txid, err := common.ParseTxid(spendHex.String)
	return txid, err == nil, err
}

func (s *sqliteStore) GetAllUnspent(filter UnspentFilter) ([]string, error) {
	query, args := unspentQuery(filter, false)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetNumUnspent(filter UnspentFilter) (int, error) {
	query, args := unspentQuery(filter, true)
	var n int
	err := s.db.QueryRow(query, args...).Scan(&n)
	return n, err
}

// unspentQuery builds the inner join of spends to jig described in spec
// §4.G, applying whichever subset of {class, lock, scripthash} filter
// has non-nil fields set.
func unspentQuery(f UnspentFilter, count bool) (string, []interface{}) {
	sel := "s.location"
	if count {
		sel = "COUNT(*)"
	}
	query := fmt.Sprintf(`SELECT %s FROM spends s JOIN jig j ON j.location = s.location WHERE s.spend_txid IS NULL`, sel)
	var args []interface{}
	if f.Class != nil {
		query += ` AND j.class = ?`
		args = append(args, *f.Class)
	}
	if f.Lock != nil {
		query += ` AND j.lock = ?`
		args = append(args, *f.Lock)
	}
	if f.Scripthash != nil {
		query += ` AND j.scripthash = ?`
		args = append(args, *f.Scripthash)
	}
	return query, args
}

func (s *sqliteStore) GetTransactionHex(txid common.Txid) (string, error) {
	data, ok, err := s.blobs.Get(txid)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return hex.EncodeToString(data), nil
}

// sqliteTx is the concrete Tx (SPEC_FULL §4.A). Every mutator method
// issues its statements (one, or two for ClearStatesForTxidPrefix)
// against the in-flight *sql.Tx; blob writes happen eagerly (not
// deferred to Commit) since the blob engines have no cross-engine
// two-phase commit with SQLite, so a rolled-back Tx keeps a blob that
// SetBytes wrote and does not restore one DeleteTransactionRow deleted.
type sqliteTx struct {
	sqltx *sql.Tx
	store *sqliteStore
	done  bool
}

func (t *sqliteTx) InsertBareTransaction(txid common.Txid, height Height, tm int64) error {
	var h interface{}
	if height != HeightUnknown {
		h = int64(height)
	}
	_, err := t.sqltx.Exec(
		`INSERT INTO tx (txid, height, time, has_bytes, has_code, executable, executed, indexed)
		 VALUES (?, ?, ?, 0, 0, 0, 0, 0)
		 ON CONFLICT(txid) DO NOTHING`,
		txid.String(), h, tm)
	return err
}

func (t *sqliteTx) TransactionExists(txid common.Txid) (bool, error) {
	return existsQuery(t.sqltx, `SELECT 1 FROM tx WHERE txid = ?`, txid.String())
}

func (t *sqliteTx) SetBytes(txid common.Txid, bytes []byte) error {
	if err := t.store.blobs.Put(txid, bytes); err != nil {
		return err
	}
	_, err := t.sqltx.Exec(`UPDATE tx SET has_bytes = 1 WHERE txid = ?`, txid.String())
	return err
}

func (t *sqliteTx) SetExecutable(txid common.Txid, executable bool, hasCode HasCode) error {
	_, err := t.sqltx.Exec(`UPDATE tx SET executable = ?, has_code = ? WHERE txid = ?`, boolInt(executable), int(hasCode), txid.String())
	return err
}

func (t *sqliteTx) SetExecuted(txid common.Txid, executed, indexed bool) error {
	_, err := t.sqltx.Exec(`UPDATE tx SET executed = ?, indexed = ? WHERE txid = ?`, boolInt(executed), boolInt(indexed), txid.String())
	return err
}

func (t *sqliteTx) DeleteTransactionRow(txid common.Txid) error {
	if err := t.store.blobs.Delete(txid); err != nil {
		return err
	}
	_, err := t.sqltx.Exec(`DELETE FROM tx WHERE txid = ?`, txid.String())
	return err
}

func (t *sqliteTx) InsertEdge(up, down common.Txid) error {
	_, err := t.sqltx.Exec(`INSERT INTO deps (up, down) VALUES (?, ?) ON CONFLICT(up, down) DO NOTHING`, up.String(), down.String())
	return err
}

func (t *sqliteTx) DeleteEdge(up, down common.Txid) error {
	_, err := t.sqltx.Exec(`DELETE FROM deps WHERE up = ? AND down = ?`, up.String(), down.String())
	return err
}

func (t *sqliteTx) DeleteEdgesTo(down common.Txid) error {
	_, err := t.sqltx.Exec(`DELETE FROM deps WHERE down = ?`, down.String())
	return err
}

func (t *sqliteTx) DeleteEdgesForTxid(txid common.Txid) error {
	_, err := t.sqltx.Exec(`DELETE FROM deps WHERE up = ? OR down = ?`, txid.String(), txid.String())
	return err
}

func (t *sqliteTx) SetSpend(loc string, spendTxid common.Txid) error {
	_, err := t.sqltx.Exec(
		`INSERT INTO spends (location, spend_txid) VALUES (?, ?)
		 ON CONFLICT(location) DO UPDATE SET spend_txid = excluded.spend_txid`,
		loc, spendTxid.String())
	return err
}

func (t *sqliteTx) RecordUnspentOutput(loc string) error {
	_, err := t.sqltx.Exec(`INSERT INTO spends (location, spend_txid) VALUES (?, NULL) ON CONFLICT(location) DO NOTHING`, loc)
	return err
}

func (t *sqliteTx) ClearSpendsForTxidPrefix(txid common.Txid) error {
	_, err := t.sqltx.Exec(`DELETE FROM spends WHERE location LIKE ?`, common.TxidPrefix(txid))
	return err
}

func (t *sqliteTx) WriteJig(loc string, state []byte, class, lock, scripthash *string) error {
	_, err := t.sqltx.Exec(
		`INSERT INTO jig (location, state, class, lock, scripthash) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(location) DO UPDATE SET state = excluded.state, class = excluded.class, lock = excluded.lock, scripthash = excluded.scripthash`,
		loc, state, class, lock, scripthash)
	return err
}

func (t *sqliteTx) WriteBerry(loc string, state []byte) error {
	_, err := t.sqltx.Exec(
		`INSERT INTO berry (location, state) VALUES (?, ?)
		 ON CONFLICT(location) DO UPDATE SET state = excluded.state`,
		loc, state)
	return err
}

func (t *sqliteTx) ClearStatesForTxidPrefix(txid common.Txid) error {
	prefix := common.TxidPrefix(txid)
	if _, err := t.sqltx.Exec(`DELETE FROM jig WHERE location LIKE ?`, prefix); err != nil {
		return err
	}
	_, err := t.sqltx.Exec(`DELETE FROM berry WHERE location LIKE ?`, prefix)
	return err
}

func (t *sqliteTx) InsertTrust(txid common.Txid) error {
	_, err := t.sqltx.Exec(`INSERT INTO trust (txid, value) VALUES (?, 1) ON CONFLICT(txid) DO NOTHING`, txid.String())
	return err
}

func (t *sqliteTx) DeleteTrust(txid common.Txid) error {
	_, err := t.sqltx.Exec(`DELETE FROM trust WHERE txid = ?`, txid.String())
	return err
}

func (t *sqliteTx) InsertBan(txid common.Txid) error {
	_, err := t.sqltx.Exec(`INSERT INTO ban (txid) VALUES (?) ON CONFLICT(txid) DO NOTHING`, txid.String())
	return err
}

func (t *sqliteTx) DeleteBan(txid common.Txid) error {
	_, err := t.sqltx.Exec(`DELETE FROM ban WHERE txid = ?`, txid.String())
	return err
}

func (t *sqliteTx) SetHeightAndHash(height int64, hash string) error {
	_, err := t.sqltx.Exec(
		`INSERT INTO crawl (role, height, hash) VALUES ('tip', ?, ?)
		 ON CONFLICT(role) DO UPDATE SET height = excluded.height, hash = excluded.hash`,
		height, hash)
	return err
}

func (t *sqliteTx) GetTransaction(txid common.Txid) (*TxRecord, error) {
	return scanTxRecord(t.sqltx.QueryRow(selectTxSQL, txid.String()), txid)
}

func (t *sqliteTx) GetUpstream(down common.Txid) ([]common.Txid, error) {
	rows, err := t.sqltx.Query(`SELECT up FROM deps WHERE down = ?`, down.String())
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (t *sqliteTx) GetDownstream(up common.Txid) ([]common.Txid, error) {
	rows, err := t.sqltx.Query(`SELECT down FROM deps WHERE up = ?`, up.String())
	if err != nil {
		return nil, err
	}
	return scanTxidList(rows)
}

func (t *sqliteTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.txMu.Unlock()
	return t.sqltx.Commit()
}

func (t *sqliteTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.txMu.Unlock()
	return t.sqltx.Rollback()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
