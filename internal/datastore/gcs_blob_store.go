package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aleister1102/dataspy/internal/common"
	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"
)

const gcsScheme = "gs://"

// GCSBlobStore keeps snapshots in a Cloud Storage bucket. Handles have the
// form gs://bucket/key.
type GCSBlobStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewGCSBlobStore creates a client using application default credentials.
func NewGCSBlobStore(ctx context.Context, bucket, prefix string, logger zerolog.Logger) (*GCSBlobStore, error) {
	if bucket == "" {
		return nil, common.NewValidationError("bucket", bucket, "gcs snapshot backend requires a bucket")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, common.NewPersistenceError("create storage client", err)
	}
	return &GCSBlobStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With().Str("component", "GCSBlobStore").Str("bucket", bucket).Logger(),
	}, nil
}

// Put uploads data, retrying transient failures.
func (g *GCSBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	object := key
	if g.prefix != "" {
		object = path.Join(g.prefix, key)
	}

	err := retry.Do(
		func() error {
			w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					g.logger.Warn().Err(closeErr).Msg("Failed to close writer after error")
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			g.logger.Info().Uint("attempt", n).Str("object", object).Err(retryErr).Msg("Retrying snapshot upload")
		}),
	)
	if err != nil {
		return "", common.NewPersistenceError("upload snapshot", err)
	}
	return gcsScheme + g.bucket + "/" + object, nil
}

// Get downloads the object named by handle.
func (g *GCSBlobStore) Get(ctx context.Context, handle string) ([]byte, error) {
	bucket, object, ok := parseGCSHandle(handle)
	if !ok {
		return nil, common.NewValidationError("handle", handle, "not a gs:// handle")
	}

	var (
		data     []byte
		notFound bool
	)
	err := retry.Do(
		func() error {
			r, openErr := g.client.Bucket(bucket).Object(object).NewReader(ctx)
			if openErr != nil {
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					notFound = true
					return retry.Unrecoverable(openErr)
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer r.Close()

			var readErr error
			data, readErr = io.ReadAll(r)
			return readErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.Context(ctx),
	)
	if notFound {
		return nil, common.WrapError(common.ErrNotFound, handle)
	}
	if err != nil {
		return nil, common.NewPersistenceError("download snapshot", err)
	}
	return data, nil
}

// Close releases the storage client.
func (g *GCSBlobStore) Close() error {
	return g.client.Close()
}

func parseGCSHandle(handle string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(handle, gcsScheme)
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
