package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store reads and publishes immutable blobs.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put publishes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes at off, with io.ReaderAt semantics.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the blob size in bytes.
	Size() int64
}

// Mappable is implemented by blobs that expose their bytes without copying.
type Mappable interface {
	// Bytes returns the blob contents. Valid until the blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll returns the blob contents. Mappable blobs are returned zero-copy.
func ReadAll(ctx context.Context, b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	buf := make([]byte, b.Size())
	if _, err := b.ReadAt(ctx, buf, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}
