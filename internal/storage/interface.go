package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/timmy/recipeclip/internal/config"
)

// ObjectStorage stores uploaded media objects.
type ObjectStorage interface {
	// Upload stores size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of key.
	GetURL(key string) string

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the configured backend. S3 flavours get their bucket created
// if missing; "memory" keeps objects in process and loses them on restart.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	if cfg.Type == "memory" {
		return NewMemoryStorage(cfg.PublicURL), nil
	}
	s3Storage, err := NewS3Storage(cfg)
	if err != nil {
		return nil, err
	}
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	return s3Storage, nil
}
