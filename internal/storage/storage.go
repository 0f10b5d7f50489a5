// Package storage defines the Storage interface for the artifact store that
// backs the published files/ directory.
//
// Backends are added by implementing Storage and registering with the factory
// via an init() function in the backend's own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// The main package imports each backend with a blank import to trigger init().
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no artifact exists at the requested path.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidPath is returned for paths that would leave the storage root.
var ErrInvalidPath = errors.New("invalid storage path")

// Storage defines the interface for all storage backends.
// Paths are slash separated and relative to the backend root.
type Storage interface {
	// Upload stores an artifact and returns the storage result with path and checksum
	Upload(ctx context.Context, path string, reader io.Reader, size int64) (*UploadResult, error)

	// Download retrieves an artifact and returns a reader
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes an artifact; deleting a missing artifact is not an error
	Delete(ctx context.Context, path string) error

	// Exists checks if an artifact exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata retrieves artifact metadata without downloading it
	GetMetadata(ctx context.Context, path string) (*FileMetadata, error)
}

// UploadResult contains information about an uploaded artifact
type UploadResult struct {
	// Path is the storage path where the artifact was stored
	Path string

	// Size is the artifact size in bytes
	Size int64

	// Checksum is the SHA256 hash of the artifact contents
	Checksum string
}

// FileMetadata contains metadata about a stored artifact
type FileMetadata struct {
	Path         string
	Size         int64
	Checksum     string
	LastModified time.Time
}
