package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// GCSSource reads objects from one bucket. References may be bare object
// names or gs://bucket/object URLs for the same bucket.
type GCSSource struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

func NewGCSSource(ctx context.Context, bucket string, logger *slog.Logger) (*GCSSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSSource{client: client, bucket: client.Bucket(bucket), name: bucket, logger: logger}, nil
}

func (s *GCSSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	start := time.Now()
	object, err := s.objectName(ref)
	if err != nil {
		return nil, err
	}

	r, err := s.bucket.Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.logger.Warn("source.gcs.not_found", "bucket", s.name, "object", object)
		}
		return nil, fmt.Errorf("%w: open gs://%s/%s: %v", common.ErrSourceRetrieval, s.name, object, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			s.logger.Warn("source.gcs.close_error", "object", object, "error", err)
		}
	}()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read gs://%s/%s: %v", common.ErrSourceRetrieval, s.name, object, err)
	}
	s.logger.Info("source.gcs.ok",
		"bucket", s.name,
		"object", object,
		"bytes", len(b),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

func (s *GCSSource) objectName(ref string) (string, error) {
	object := strings.TrimSpace(ref)
	if rest, ok := strings.CutPrefix(object, "gs://"); ok {
		bucket, obj, _ := strings.Cut(rest, "/")
		if bucket != s.name {
			return "", fmt.Errorf("%w: %q is outside bucket %s", common.ErrSourceRetrieval, ref, s.name)
		}
		object = obj
	}
	object = strings.TrimPrefix(object, "/")
	if object == "" {
		return "", fmt.Errorf("%w: empty document reference", common.ErrSourceRetrieval)
	}
	return object, nil
}

func (s *GCSSource) Close() error {
	return s.client.Close()
}
