package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for retrieving and managing binary objects.
type ObjectStore interface {
	// Open opens a stored object for reading.
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SaveWithKey writes the reader contents at a specific storage key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	// Delete removes the object at the given storage key. Deleting a
	// missing object is not an error.
	Delete(ctx context.Context, storageKey string) error
	// List returns the storage keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
