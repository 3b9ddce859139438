package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pixelvault/internal/client/client"
	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/preview"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/cryptox"
	"github.com/dmitrijs2005/pixelvault/internal/filex"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
	"github.com/dmitrijs2005/pixelvault/internal/netx"
)

// QuotaGuard is supplied by the orchestrator and called after the dedup
// checks, right before bytes start moving. It returns common.ErrQuotaExceeded
// when the item would not fit, which halts the remaining upload sweep.
type QuotaGuard func(sizeBytes int64) error

// UploadService runs the upload pipeline for one staged local item.
type UploadService struct {
	ledger   ledger.Repository
	catalog  client.Client
	store    netx.ObjectStore
	previews preview.Generator
	dirs     *Dirs
	log      logging.Logger
}

func NewUploadService(ledgerRepo ledger.Repository, catalog client.Client, store netx.ObjectStore,
	previews preview.Generator, dirs *Dirs, log logging.Logger) *UploadService {
	return &UploadService{
		ledger:   ledgerRepo,
		catalog:  catalog,
		store:    store,
		previews: previews,
		dirs:     dirs,
		log:      log,
	}
}

// Upload takes one local media item not yet confirmed synced and produces a
// Synced record. When the ledger already knows the content the existing
// record is adopted and no transfer happens. Temporary files created along
// the way are removed on every exit path.
func (s *UploadService) Upload(ctx context.Context, account *models.Account, item models.LocalMediaItem,
	quota QuotaGuard, progress netx.Progress) (*models.MediaRecord, error) {

	if !account.Valid() {
		return nil, fmt.Errorf("%w: sync account not initialized", common.ErrPrecondition)
	}

	// 1. cheap pre-check by owner, name and capture time; the content hash
	// below remains the dedup authority
	existing, err := s.ledger.GetByNameAndDate(ctx, account.UserID, item.Name, item.TakenAt)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == models.StatusSynced {
		s.log.Info(ctx, "already uploaded, skipping", "name", item.DisplayName())
		return existing, nil
	}

	// 2. resolve the device reference into a readable scratch copy
	localPath := filex.TempPath(s.dirs.Tmp, item.Format)
	if err := filex.CopyFile(item.Ref, localPath); err != nil {
		return nil, fmt.Errorf("%w: resolve local item: %v", common.ErrIO, err)
	}
	defer func() { _ = filex.RemoveIfExists(localPath) }()

	// 3. content hash, then the authoritative dedup gate: the same photo may
	// have been uploaded from another device or pulled meanwhile
	hash, err := cryptox.ContentHash(account.UserID, item.Name, item.TakenAt, localPath)
	if err != nil {
		return nil, err
	}
	byHash, err := s.ledger.GetByContentHash(ctx, hash)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if byHash != nil && byHash.Status != models.StatusLocal {
		s.log.Info(ctx, "matched by hash, skipping upload", "name", item.DisplayName())
		return byHash, nil
	}

	if err := quota(item.SizeBytes); err != nil {
		return nil, err
	}

	// 4. preview; videos get none, the image resizer cannot decode them
	var prev *models.Preview
	if item.ItemType == models.ItemTypeImage {
		prev, err = s.previews.Generate(ctx, localPath)
		if err != nil {
			return nil, fmt.Errorf("generate preview: %w", err)
		}
		defer func() { _ = filex.RemoveIfExists(prev.Path) }()
	}

	// 5. preview upload; its progress is not separately surfaced
	previewID := ""
	if prev != nil {
		previewID, err = s.store.Upload(ctx, prev.Path, account.Bucket, account.BucketKey, nil)
		if err != nil {
			return nil, err
		}
	}

	// 6. original upload, with fractional progress
	contentID, err := s.store.Upload(ctx, localPath, account.Bucket, account.BucketKey, progress)
	if err != nil {
		return nil, err
	}

	// 7. register with the catalog; find-or-create converges concurrent
	// registrations of the same hash on one remote record
	created, err := s.catalog.FindOrCreateMedia(ctx, models.CreateMediaData{
		Name:        item.Name,
		Format:      item.Format,
		ItemType:    item.ItemType,
		TakenAt:     item.TakenAt,
		Width:       item.Width,
		Height:      item.Height,
		SizeBytes:   item.SizeBytes,
		OwnerID:     account.UserID,
		DeviceID:    account.DeviceID,
		ContentHash: hash,
		PreviewID:   previewID,
		ContentID:   contentID,
	})
	if err != nil {
		return nil, err
	}

	// 8. commit; keep the preview in the cache under the assigned id
	rec := *created
	rec.Status = models.StatusSynced
	rec.FullPath = item.Ref
	if prev != nil {
		cached := s.dirs.PreviewPath(rec.ID, prev.Format)
		if err := filex.CopyFile(prev.Path, cached); err != nil {
			return nil, fmt.Errorf("%w: cache preview: %v", common.ErrIO, err)
		}
		rec.PreviewPath = cached
	}
	if err := s.ledger.Upsert(ctx, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}
