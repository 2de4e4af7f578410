// Package blob abstracts durable backing-file storage. Credentials store
// their file under a holder-scoped path; verification re-reads the bytes
// through a time-bounded signed URL.
package blob

import (
	"context"
	"time"
)

// Store is the durable blob storage boundary.
type Store interface {
	// Put writes bytes under path. Paths are opaque to callers beyond the
	// holder-scoped prefix convention enforced by the credential service.
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// Get reads the full content stored under path.
	Get(ctx context.Context, path string) ([]byte, error)
	// SignedReadURL returns a URL granting read access to path for ttl.
	SignedReadURL(path string, ttl time.Duration) (string, error)
	// Delete removes the blob. Used as the compensating action when record
	// creation fails after a successful write.
	Delete(ctx context.Context, path string) error
}
