package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

// Common storage errors
var (
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectInfo represents information about a stored artifact
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage defines the interface for artifact storage. The bucket is a
// namespace (a directory root on the filesystem adapter, a bucket on the S3
// adapter); keys are slash-separated paths beneath it.
type Storage interface {
	// Put stores an artifact under the given key. The write is atomic: a
	// reader never observes a partially written object.
	Put(ctx context.Context, bucket, key string, reader io.Reader) (int64, error)

	// Get retrieves an artifact by key
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Exists checks if an artifact exists
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Delete removes an artifact
	Delete(ctx context.Context, bucket, key string) error

	// List returns the artifacts under the given prefix
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Location returns a path or URI usable to hand the artifact to an
	// external process
	Location(bucket, key string) string
}
