// Package netx implements the encrypted object transport. Blobs are sealed
// with a per-object key before they leave the device and stored in an
// S3-compatible bucket (MinIO in development).
package netx

import (
	"context"
	"time"

	"fmt"

	"github.com/google/uuid"
)

// Progress reports fractional transfer progress in the range 0.0–1.0.
type Progress func(fraction float64)

// ObjectStore moves opaque encrypted blobs between the device and the remote
// bucket. Implementations observe ctx at I/O boundaries so an aborted task
// stops cooperatively.
type ObjectStore interface {
	// Upload seals the file at path and stores it, returning the remote
	// object id.
	Upload(ctx context.Context, path, bucket string, bucketKey []byte, progress Progress) (string, error)

	// Download fetches the object, opens it and writes the plaintext to
	// destPath.
	Download(ctx context.Context, objectID, bucket string, bucketKey []byte, destPath string, downloadProgress, decryptProgress Progress) error
}

// StorageKey builds a date-scoped unique object key.
func StorageKey() string {
	d := time.Now()
	return fmt.Sprintf("users/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
