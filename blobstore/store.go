package blobstore

import (
	"context"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore stores immutable blobs: sorted runs and manifests.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes. The blob becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off. Ranges past the end are
	// truncated; an offset at or past the end returns io.EOF.
	ReadRange(ctx context.Context, off, length int64) (ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.Writer
	io.Closer
	// Sync flushes buffered data to durable storage where supported.
	Sync() error
}

// Aborter is implemented by writable blobs that can discard an unfinished
// write instead of publishing it.
type Aborter interface {
	Abort(ctx context.Context) error
}

// UnfinishedLister is implemented by stores whose interrupted writes leave
// temporary blobs that List does not report.
type UnfinishedLister interface {
	ListUnfinished(ctx context.Context, prefix string) ([]string, error)
}

// ReadCloser is the stream returned by Blob.ReadRange.
type ReadCloser = io.ReadCloser

// NopReadCloser wraps r with a no-op Close.
func NopReadCloser(r io.Reader) ReadCloser { return io.NopCloser(r) }

// JoinPrefix joins a store's key prefix and a List prefix. Unlike path.Join
// it keeps a trailing "/", so "jobs/" does not match "jobs-archive/".
func JoinPrefix(root, prefix string) string {
	if root == "" {
		return prefix
	}
	return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(prefix, "/")
}

// Abort discards w if it supports Aborter and closes it otherwise.
func Abort(ctx context.Context, w WritableBlob) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(ctx)
	}
	return w.Close()
}
