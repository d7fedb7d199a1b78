// Package blob provides content-addressed file storage for original
// uploads. Keys follow the "user_id/file_name" convention.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// Object describes a stored blob without its content.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store abstracts the blob backend so the pipeline and reconciler do not
// care whether files live on local disk or an object store.
type Store interface {
	// Upload writes data under key, replacing any existing content.
	Upload(ctx context.Context, key string, data []byte) error
	// Download returns the content stored under key, or ErrNotFound.
	Download(ctx context.Context, key string) ([]byte, error)
	// Stat returns object info for key, or ErrNotFound.
	Stat(ctx context.Context, key string) (*Object, error)
	// List returns all objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Delete removes the object under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
}
