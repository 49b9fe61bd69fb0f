package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is the backend-neutral blob store for uploaded photos and
// generated coloring pages.
type Storage interface {
	// Put stores a blob under the given key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get opens a stored blob for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a blob. Returns nil if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the public URL for a stored blob.
	GetURL(key string) string
}

// Config selects and configures a storage backend
type Config struct {
	Backend string // "local" or "s3"

	// Local backend
	LocalPath    string
	LocalBaseURL string

	// S3 backend (also covers S3-compatible stores via S3Endpoint)
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	S3PublicURL string // CDN or public bucket URL; overrides the derived URL
}

// New creates the storage backend named by cfg.Backend
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalBaseURL)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
