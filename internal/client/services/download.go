package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/preview"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/filex"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
	"github.com/dmitrijs2005/pixelvault/internal/netx"
)

// DownloadService pulls remote objects into the local cache.
type DownloadService struct {
	store netx.ObjectStore
	dirs  *Dirs
	log   logging.Logger
}

func NewDownloadService(store netx.ObjectStore, dirs *Dirs, log logging.Logger) *DownloadService {
	return &DownloadService{store: store, dirs: dirs, log: log}
}

// Pull fetches one remote object to destPath. A destination that already
// exists makes the pull a no-op, so interrupted passes can safely repeat it.
func (s *DownloadService) Pull(ctx context.Context, account *models.Account, objectID, destPath string,
	downloadProgress, decryptProgress netx.Progress) (string, error) {

	if !account.Valid() {
		return "", fmt.Errorf("%w: sync account not initialized", common.ErrPrecondition)
	}
	if filex.Exists(destPath) {
		return destPath, nil
	}

	err := s.store.Download(ctx, objectID, account.Bucket, account.BucketKey, destPath, downloadProgress, decryptProgress)
	if err != nil {
		return "", err
	}
	return destPath, nil
}

// PullPreview fetches the preview of a remote record into the preview cache
// and returns the cached path. Records without a preview yield an empty path.
func (s *DownloadService) PullPreview(ctx context.Context, account *models.Account, rec *models.MediaRecord) (string, error) {
	if rec.PreviewID == "" {
		return "", nil
	}
	dest := s.dirs.PreviewPath(rec.ID, preview.PreviewFormat)
	return s.Pull(ctx, account, rec.PreviewID, dest, nil, nil)
}
