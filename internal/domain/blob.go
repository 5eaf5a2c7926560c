package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to cold storage. Used by the resolution
// archiver to keep an audit trail of terminal resolution records.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves previously archived objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
