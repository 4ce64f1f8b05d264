package datastore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotKey(t *testing.T) {
	tests := []struct {
		name        string
		taskID      string
		contentType string
		want        string
	}{
		{name: "html", taskID: "t1", contentType: "text/html; charset=utf-8", want: "t1/abc.html"},
		{name: "json", taskID: "t1", contentType: "application/json", want: "t1/abc.json"},
		{name: "plain", taskID: "t1", contentType: "text/plain", want: "t1/abc.txt"},
		{name: "unknown", taskID: "t1", contentType: "", want: "t1/abc.bin"},
		{name: "unsafe id", taskID: "../etc", contentType: "text/html", want: "___etc/abc.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, datastore.SnapshotKey(tt.taskID, "abc", tt.contentType))
		})
	}
}

func TestFileBlobStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := datastore.NewFileBlobStore(dir, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	handle, err := store.Put(ctx, "task/hash.html", []byte("<html>v1</html>"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle, dir))

	data, err := store.Get(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", string(data))

	// same key overwrites in place
	_, err = store.Put(ctx, "task/hash.html", []byte("<html>v2</html>"))
	require.NoError(t, err)
	data, err = store.Get(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "task"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileBlobStore_GetMissing(t *testing.T) {
	store, err := datastore.NewFileBlobStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNewBlobStore(t *testing.T) {
	cfg := config.NewDefaultSnapshotConfig()
	cfg.BaseDir = t.TempDir()
	store, err := datastore.NewBlobStore(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &datastore.FileBlobStore{}, store)

	_, err = datastore.NewBlobStore(context.Background(), config.SnapshotConfig{Backend: "s3"}, zerolog.Nop())
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = datastore.NewBlobStore(context.Background(), config.SnapshotConfig{Backend: "gcs"}, zerolog.Nop())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
