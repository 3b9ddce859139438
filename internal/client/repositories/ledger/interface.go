package ledger

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
)

// PageQuery bounds a paged sweep over pending uploads. From and To are
// inclusive capture-time bounds; either may be nil.
type PageQuery struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository is the persisted sync ledger: the single source of truth for
// what this device has uploaded, downloaded or trashed. Implementations are
// backed by a local SQLite database.
type Repository interface {
	// GetByContentHash returns the record with the given dedup key, or
	// common.ErrorNotFound.
	GetByContentHash(ctx context.Context, hash string) (*models.MediaRecord, error)

	// GetByNameAndDate is the cheap pre-check used before hashing. The
	// content hash remains the final dedup authority.
	GetByNameAndDate(ctx context.Context, ownerID, name string, takenAt time.Time) (*models.MediaRecord, error)

	// GetByRemoteID returns the record with the given remote id.
	GetByRemoteID(ctx context.Context, id string) (*models.MediaRecord, error)

	// Upsert inserts or updates the record keyed by its content hash.
	// Metadata is last-write-wins; status only moves forward.
	Upsert(ctx context.Context, rec *models.MediaRecord) error

	// UpdateStatusByRemoteID applies a remote status change to a record
	// already on the device.
	UpdateStatusByRemoteID(ctx context.Context, id string, status models.MediaStatus) error

	// DeleteByRemoteID removes the record with the given remote id.
	DeleteByRemoteID(ctx context.Context, id string) error

	// Count returns the number of non-trashed records.
	Count(ctx context.Context) (int64, error)

	// List returns non-trashed records ordered by capture time, newest
	// first, paged.
	List(ctx context.Context, limit, offset int) ([]models.MediaRecord, error)

	// NewestTakenAt and OldestTakenAt bound the already-known capture times,
	// used to decide upload sweep ranges. Nil when the ledger is empty.
	NewestTakenAt(ctx context.Context) (*time.Time, error)
	OldestTakenAt(ctx context.Context) (*time.Time, error)

	// RemoteSyncCursor is the time up to which remote state was reconciled.
	// Zero time when no pass completed yet.
	RemoteSyncCursor(ctx context.Context) (time.Time, error)
	SetRemoteSyncCursor(ctx context.Context, t time.Time) error

	// StageLocalItems copies a page of device media entries into the
	// camera-roll staging table. Already-staged refs are skipped.
	StageLocalItems(ctx context.Context, items []models.LocalMediaItem) error

	// ListPendingUploads pages over staged items ordered by capture time.
	ListPendingUploads(ctx context.Context, q PageQuery) ([]models.LocalMediaItem, error)

	// CountPendingUploads counts staged items within the given bounds.
	CountPendingUploads(ctx context.Context, from, to *time.Time) (int64, error)

	// ClearStaged empties the camera-roll staging table. Runs on every pass
	// exit, success or not.
	ClearStaged(ctx context.Context) error

	// ResetAll wipes the ledger. Used on sign-out and "clear local data".
	ResetAll(ctx context.Context) error
}
