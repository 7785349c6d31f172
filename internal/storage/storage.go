package storage

import (
	"context"
	"io"
	"time"
)

// Package storage contains the file backend abstraction for document bytes.
// Two implementations exist: an S3-compatible object store (MinIO) and the
// local filesystem. The service layer depends only on Backend and selects an
// implementation by the document's storage discriminator.

// PutOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the
// implementation will buffer/chunk as supported by the backend.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
// Key is the authoritative location the backend stored the object under;
// Bucket is set only by object-store implementations.
type ObjectInfo struct {
	Key          string
	Bucket       string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Backend is a physical storage capability for document bytes.
// Methods use context and streaming readers; implementations must be safe
// for concurrent use.
type Backend interface {
	// Put streams r to the given key. Either the full write succeeds or
	// nothing is persisted.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
	// Exists reports whether an object is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns a client-usable download URL for key, valid for at least expiry.
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
