package interfaces

import (
	"context"
	"io"
)

// DocumentStore holds the binary content of permit documents.
type DocumentStore interface {
	// Put stores body under key and returns the public URL of the object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}
