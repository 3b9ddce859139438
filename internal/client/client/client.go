package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
)

// Client is the remote photo catalog: the metadata authority the sync engine
// reconciles against. Blob bytes travel through netx.ObjectStore, not here.
type Client interface {
	Close() error

	// Ping probes catalog reachability.
	Ping(ctx context.Context) error

	// GetChangedSince returns one page of records whose status changed at or
	// after since, plus the total count of such records.
	GetChangedSince(ctx context.Context, since time.Time, skip, limit int) ([]models.MediaRecord, int64, error)

	// FindOrCreateMedia registers uploaded metadata and returns the
	// authoritative record. Idempotent by content hash: registering the same
	// hash twice returns the first record.
	FindOrCreateMedia(ctx context.Context, data models.CreateMediaData) (*models.MediaRecord, error)

	// DeleteByID marks the remote record trashed.
	DeleteByID(ctx context.Context, id string) error

	// Usage returns the storage accounting snapshot for the quota guard.
	Usage(ctx context.Context) (models.Usage, error)
}
