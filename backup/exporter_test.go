package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/storage"
)

func newTestExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.OpenBlobStore(storage.BlobConfig{Engine: storage.BlobEngineMemory})
	require.NoError(t, err)
	store, err := storage.Open(filepath.Join(dir, "source.db"), blobs)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stageDir := filepath.Join(dir, "stage")
	exp, err := New(store, Config{StageDir: stageDir, Bucket: "unused", Region: "us-east-1"})
	require.NoError(t, err)
	return exp, dir
}

func TestCopyLocalProducesAReadableCheckpoint(t *testing.T) {
	exp, dir := newTestExporter(t)
	destDir := filepath.Join(dir, "dest")

	path, err := exp.CopyLocal(destDir)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
	require.Equal(t, destDir, filepath.Dir(path))
}

func TestStopEndsRunLoop(t *testing.T) {
	exp, _ := newTestExporter(t)
	done := make(chan struct{})
	go func() {
		exp.Run()
		close(done)
	}()
	exp.Stop()
	<-done
}
