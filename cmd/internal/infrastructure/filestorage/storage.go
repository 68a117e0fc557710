// Package filestorage persists note audio under portable relative paths.
// The active backend is chosen once at startup and never re-resolved.
package filestorage

import (
	"context"
	"errors"
	"io"
)

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

var (
	// ErrStorageFault wraps every I/O failure of a backend.
	ErrStorageFault = errors.New("storage fault")

	// ErrObjectNotFound is returned by Open when nothing is stored under the path.
	ErrObjectNotFound = errors.New("stored object not found")
)

// Upload is an audio payload as received from the client.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Backend is the capability every storage implementation provides.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save writes data under relPath and returns relPath unchanged.
	Save(ctx context.Context, data []byte, relPath, contentType string) (string, error)

	// Open returns a reader for the object under relPath. Callers close it.
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
}
