package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage implements BlobStorage on a single Cloud Storage bucket.
type GCSStorage struct {
	bucket *gcs.BucketHandle
	logger *slog.Logger
}

func NewGCSStorage(ctx context.Context, bucketName string, logger *slog.Logger) (*GCSStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorage{bucket: client.Bucket(bucketName), logger: logger}, nil
}

// Upload writes data to the object only if it does not already exist; upload
// paths are collision-resistant, so an existing object means a duplicate
// request, not new content.
func (s *GCSStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := s.bucket.Object(path).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.logger.Error("storage upload failed", "path", path, "error", err)
		return fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("storage upload finalize failed", "path", path, "error", err)
		return fmt.Errorf("finalize object %s: %w", path, err)
	}
	s.logger.Debug("uploaded object", "path", path, "bytes", len(data))
	return nil
}

func (s *GCSStorage) Download(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

func (s *GCSStorage) SignedURL(path string, ttl time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(path, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", path, err)
	}
	return url, nil
}
