package blob

import (
	"context"
	"fmt"
	"io"
)

// Storage holds opaque blobs such as lost-and-found photos
type Storage interface {
	// Put stores the blob under key and returns its public URL
	Put(ctx context.Context, key string, body io.Reader) (string, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the URL clients use to fetch the blob
	PublicURL(key string) string
}

// Config selects and configures a storage driver
type Config struct {
	Driver string // local, s3

	// Local storage
	BasePath  string
	URLPrefix string

	// AWS S3
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSBucket          string
}

// New creates the storage driver named by cfg.Driver
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "local", "":
		basePath := cfg.BasePath
		if basePath == "" {
			basePath = "./photos"
		}
		prefix := cfg.URLPrefix
		if prefix == "" {
			prefix = "/photos"
		}
		return NewLocalStorage(basePath, prefix), nil

	case "s3":
		return NewS3Storage(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// ContentType returns the MIME type for a blob key based on its extension
func ContentType(key string) string {
	switch extension(key) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "application/octet-stream"
}

func extension(key string) string {
	for i := len(key) - 1; i >= 0 && key[i] != '/'; i-- {
		if key[i] == '.' {
			return key[i:]
		}
	}
	return ""
}
