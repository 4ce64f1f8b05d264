package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/rs/zerolog"
)

const (
	BlobBackendFile = "file"
	BlobBackendGCS  = "gcs"
)

// BlobStore keeps raw snapshot content outside the database. Put returns an
// opaque handle that Get accepts.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, handle string) ([]byte, error)
}

// SnapshotKey builds the blob key of one snapshot. Identical content of the
// same task maps to the same key.
func SnapshotKey(taskID, contentHash, contentType string) string {
	return fmt.Sprintf("%s/%s.%s", sanitizeKeyPart(taskID), contentHash, snapshotExtension(contentType))
}

func snapshotExtension(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.HasPrefix(ct, "text/"):
		return "txt"
	}
	return "bin"
}

func sanitizeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// NewBlobStore creates the blob store selected by cfg.
func NewBlobStore(ctx context.Context, cfg config.SnapshotConfig, logger zerolog.Logger) (BlobStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BlobBackendFile:
		return NewFileBlobStore(cfg.BaseDir, logger)
	case BlobBackendGCS:
		return NewGCSBlobStore(ctx, cfg.Bucket, cfg.Prefix, logger)
	}
	return nil, common.NewValidationError("backend", cfg.Backend, "unsupported snapshot backend")
}

// FileBlobStore writes blobs under a base directory.
type FileBlobStore struct {
	baseDir string
	logger  zerolog.Logger
}

// NewFileBlobStore creates baseDir if needed.
func NewFileBlobStore(baseDir string, logger zerolog.Logger) (*FileBlobStore, error) {
	if baseDir == "" {
		baseDir = config.DefaultSnapshotBaseDir
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, common.NewPersistenceError("create snapshot directory", err)
	}
	return &FileBlobStore{
		baseDir: baseDir,
		logger:  logger.With().Str("component", "FileBlobStore").Logger(),
	}, nil
}

// Put writes data atomically via a temp file and rename. The handle is the
// file path.
func (f *FileBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(f.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", common.NewPersistenceError("create snapshot directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return "", common.NewPersistenceError("create snapshot file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", common.NewPersistenceError("write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", common.NewPersistenceError("close snapshot", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", common.NewPersistenceError("rename snapshot", err)
	}

	f.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Snapshot written")
	return path, nil
}

// Get reads the blob at handle.
func (f *FileBlobStore) Get(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(handle)
	if os.IsNotExist(err) {
		return nil, common.WrapError(common.ErrNotFound, handle)
	}
	if err != nil {
		return nil, common.NewPersistenceError("read snapshot", err)
	}
	return data, nil
}
