package storage

import (
	"database/sql"
	"encoding/hex"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
)

func TestMigrateAppliesV0ToV2InOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := OpenBlobStore(BlobConfig{Engine: BlobEngineMemory})
	require.NoError(t, err)

	require.NoError(t, migrate(db, blobs))

	version, err := getUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, currentSchemaVersion, version)

	// re-running migrate on an already-current database must be a no-op.
	require.NoError(t, migrate(db, blobs))
	version, err = getUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, currentSchemaVersion, version)
}

func TestMigrateV1ToV2MovesBytesToBlobStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrateV0ToV1(db))

	txid := common.MustParseTxid("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	raw := []byte("some transaction bytes")
	_, err = db.Exec(`INSERT INTO tx (txid, height, time, bytes) VALUES (?, 0, 0, ?)`,
		txid.String(), hex.EncodeToString(raw))
	require.NoError(t, err)
	require.NoError(t, setUserVersion(db, 1))

	blobs, err := OpenBlobStore(BlobConfig{Engine: BlobEngineMemory})
	require.NoError(t, err)
	require.NoError(t, migrateV1ToV2(db, blobs))

	got, ok, err := blobs.Get(txid)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, raw, got)

	var hasBytes int
	require.NoError(t, db.QueryRow(`SELECT has_bytes FROM tx WHERE txid = ?`, txid.String()).Scan(&hasBytes))
	require.Equal(t, 1, hasBytes)
}
