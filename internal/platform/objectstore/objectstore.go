// Package objectstore abstracts the blob storage used for profile photos.
// The service only needs put/get/remove on (bucket, key) pairs, so the
// interface stays small enough to back with a filesystem in production
// and a map in tests.
package objectstore

import (
	"context"
	"io"
)

// Object carries a stored blob and its declared media type.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store is the object-storage collaborator contract.
type Store interface {
	Put(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	Get(ctx context.Context, bucket, key string) (*Object, error)
	Remove(ctx context.Context, bucket, key string) error
}
