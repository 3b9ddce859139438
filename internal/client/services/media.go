package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pixelvault/internal/client/client"
	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/session"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/filex"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
	"github.com/dmitrijs2005/pixelvault/internal/netx"
)

// MediaService exposes the on-demand operations on already-registered media:
// full-resolution download, deletion and the ledger views the CLI renders.
type MediaService struct {
	ledger    ledger.Repository
	session   session.Repository
	catalog   client.Client
	downloads *DownloadService
	dirs      *Dirs
	log       logging.Logger
}

func NewMediaService(ledgerRepo ledger.Repository, sessionRepo session.Repository, catalog client.Client,
	downloads *DownloadService, dirs *Dirs, log logging.Logger) *MediaService {
	return &MediaService{
		ledger:    ledgerRepo,
		session:   sessionRepo,
		catalog:   catalog,
		downloads: downloads,
		dirs:      dirs,
		log:       log,
	}
}

// DownloadOptions tunes one full-resolution fetch. An empty ToPath stores
// the file under the media directory using the record's display name.
type DownloadOptions struct {
	ToPath             string
	OnDownloadProgress netx.Progress
	OnDecryptProgress  netx.Progress
}

// DownloadPhoto fetches the full-resolution payload of a synced record.
// A record that already has the file on disk is returned as is.
func (s *MediaService) DownloadPhoto(ctx context.Context, remoteID string, opts DownloadOptions) (*models.MediaRecord, error) {
	account, err := s.session.GetAccount(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.ledger.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if rec.ContentID == "" {
		return nil, fmt.Errorf("%w: record %s has no remote content", common.ErrPrecondition, remoteID)
	}

	destPath := opts.ToPath
	if destPath == "" {
		destPath = s.dirs.FullPath(rec.DisplayName())
	}
	if rec.FullPath != "" && filex.Exists(rec.FullPath) {
		return rec, nil
	}

	if err := s.setStatus(ctx, rec, models.StatusDownloading); err != nil {
		return nil, err
	}

	if _, err := s.downloads.Pull(ctx, account, rec.ContentID, destPath, opts.OnDownloadProgress, opts.OnDecryptProgress); err != nil {
		// roll the marker back so the record stays fetchable
		if rerr := s.ledger.UpdateStatusByRemoteID(ctx, rec.ID, models.StatusSynced); rerr != nil {
			s.log.Error(ctx, "failed to reset status after download failure", "id", rec.ID, "error", rerr)
		}
		return nil, err
	}

	rec.FullPath = destPath
	rec.Status = models.StatusSynced
	if err := s.ledger.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "photo downloaded", "id", rec.ID, "path", destPath)
	return rec, nil
}

func (s *MediaService) setStatus(ctx context.Context, rec *models.MediaRecord, status models.MediaStatus) error {
	if !rec.Status.CanTransition(status) {
		return fmt.Errorf("%w: record %s is %s", common.ErrPrecondition, rec.ID, rec.Status)
	}
	if err := s.ledger.UpdateStatusByRemoteID(ctx, rec.ID, status); err != nil {
		return err
	}
	rec.Status = status
	return nil
}

// DeletePhoto moves a record to trash on the catalog and mirrors the
// transition locally. A record already gone remotely is still trashed in
// the ledger.
func (s *MediaService) DeletePhoto(ctx context.Context, remoteID string) error {
	rec, err := s.ledger.GetByRemoteID(ctx, remoteID)
	if err != nil {
		return err
	}

	if err := s.catalog.DeleteByID(ctx, remoteID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if err := s.ledger.UpdateStatusByRemoteID(ctx, remoteID, models.StatusTrashed); err != nil {
		return err
	}
	if rec.FullPath != "" {
		if err := filex.RemoveIfExists(rec.FullPath); err != nil {
			s.log.Warn(ctx, "failed to remove local file", "path", rec.FullPath, "error", err)
		}
	}
	s.log.Info(ctx, "photo trashed", "id", remoteID)
	return nil
}

// CountPhotos returns the number of non-trashed ledger records.
func (s *MediaService) CountPhotos(ctx context.Context) (int64, error) {
	return s.ledger.Count(ctx)
}

// ListPhotos returns one page of ledger records, newest first.
func (s *MediaService) ListPhotos(ctx context.Context, limit, offset int) ([]models.MediaRecord, error) {
	return s.ledger.List(ctx, limit, offset)
}

// ClearData wipes everything this device knows: the ledger, the stored
// session and the media directories. The catalog is untouched.
func (s *MediaService) ClearData(ctx context.Context) error {
	if err := s.ledger.ResetAll(ctx); err != nil {
		return err
	}
	if err := s.session.Clear(ctx); err != nil {
		return err
	}
	if err := s.dirs.ClearAll(); err != nil {
		return err
	}
	s.log.Info(ctx, "local data cleared")
	return nil
}
