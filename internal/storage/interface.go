package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidKey = errors.New("invalid storage key")

// StorageInterface defines the object storage backends for chat attachments
// and avatars. Supports the local filesystem and a Firebase (GCS) bucket.
type StorageInterface interface {
	// Upload stores the object and returns its public URL
	// key: storage path/key for the file
	// contentType: MIME type (e.g., "image/jpeg")
	Upload(ctx context.Context, key, contentType string, reader io.Reader) (string, error)

	// PublicURL is the URL clients use to fetch key
	PublicURL(key string) string

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// DeleteFile removes a file from storage
	DeleteFile(ctx context.Context, key string) error

	// ReadFile opens a file for reading
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)
}
