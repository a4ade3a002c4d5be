// Package storage wraps blob storage behind the narrow surface the pipeline
// and the upload endpoint need: write bytes, read them back, and mint
// read-only time-limited URLs.
package storage

import (
	"context"
	"time"
)

type BlobStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	SignedURL(path string, ttl time.Duration) (string, error)
}
