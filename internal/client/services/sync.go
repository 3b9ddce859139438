package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/pixelvault/internal/client/client"
	"github.com/dmitrijs2005/pixelvault/internal/client/medialib"
	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/queue"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/session"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
)

// ErrSyncInProgress is returned when a pass is started while another one is
// still running.
var ErrSyncInProgress = errors.New("sync pass already running")

// SyncConfig tunes one orchestrator. Zero values fall back to defaults.
type SyncConfig struct {
	UploadConcurrency   int           // default 3
	DownloadConcurrency int           // default 2
	MaxRetries          int           // default 3
	MinTaskDuration     time.Duration // default 1s
	RemotePageSize      int           // default 25
	LocalPageSize       int           // default 50
	LibraryPageSize     int           // default 50
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 3
	}
	if c.DownloadConcurrency <= 0 {
		c.DownloadConcurrency = 2
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MinTaskDuration == 0 {
		c.MinTaskDuration = time.Second
	}
	if c.RemotePageSize <= 0 {
		c.RemotePageSize = 25
	}
	if c.LocalPageSize <= 0 {
		c.LocalPageSize = 50
	}
	if c.LibraryPageSize <= 0 {
		c.LibraryPageSize = 50
	}
	return c
}

// SyncOptions carries the per-pass progress callbacks. A nil callback is
// simply not invoked. OnTaskCompleted receives a nil record for items whose
// transfer ultimately failed; the completed counter still advances.
type SyncOptions struct {
	OnStart               func(models.SyncInfo)
	OnTaskCompleted       func(kind models.TaskKind, rec *models.MediaRecord, completed int)
	OnStorageLimitReached func()
}

// SyncService drives one full, cancellable synchronization pass: reconcile
// remote changes since the cursor, then drain local unsynced items through
// the transfer queue, newest first, then the pre-history sweep.
type SyncService struct {
	ledger    ledger.Repository
	session   session.Repository
	catalog   client.Client
	library   medialib.Library
	uploads   *UploadService
	downloads *DownloadService
	dirs      *Dirs
	cfg       SyncConfig
	log       logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSyncService(ledgerRepo ledger.Repository, sessionRepo session.Repository, catalog client.Client,
	library medialib.Library, uploads *UploadService, downloads *DownloadService, dirs *Dirs,
	cfg SyncConfig, log logging.Logger) *SyncService {
	return &SyncService{
		ledger:    ledgerRepo,
		session:   sessionRepo,
		catalog:   catalog,
		library:   library,
		uploads:   uploads,
		downloads: downloads,
		dirs:      dirs,
		cfg:       cfg.withDefaults(),
		log:       log,
	}
}

// Cancel triggers the shared cancellation signal of the running pass, if any.
// The interrupted sweep resumes from ledger state on the next pass.
func (s *SyncService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Run executes one sync pass. A cancelled pass returns nil once in-flight
// tasks have wound down; precondition and persistence failures propagate.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	passID := uuid.NewString()
	log := s.log.With("sync_id", passID)
	log.Info(ctx, "sync started")

	// the staging table and temp files never outlive a pass, whatever the
	// outcome
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := s.ledger.ClearStaged(cleanupCtx); err != nil {
			log.Error(cleanupCtx, "failed to clear staging table", "error", err)
		}
		if err := s.dirs.ClearTmp(); err != nil {
			log.Error(cleanupCtx, "failed to clear tmp files", "error", err)
		}
		log.Info(cleanupCtx, "cleaned tmp data")
	}()

	account, err := s.session.GetAccount(ctx)
	if err != nil {
		return err
	}
	if !account.Valid() {
		return fmt.Errorf("%w: sync account not initialized", common.ErrPrecondition)
	}

	if err := s.stageCameraRoll(ctx, log); err != nil {
		return err
	}

	cursor, err := s.ledger.RemoteSyncCursor(ctx)
	if err != nil {
		return err
	}
	newest, err := s.ledger.NewestTakenAt(ctx)
	if err != nil {
		return err
	}
	oldest, err := s.ledger.OldestTakenAt(ctx)
	if err != nil {
		return err
	}
	usage, err := s.catalog.Usage(ctx)
	if err != nil {
		return err
	}

	info, err := s.calculateSyncInfo(ctx, cursor, newest, oldest)
	if err != nil {
		return err
	}
	if opts.OnStart != nil {
		opts.OnStart(*info)
	}
	log.Info(ctx, "calculated tasks",
		"total", info.TotalTasks, "download", info.DownloadTasks,
		"newer_upload", info.NewerUploadTasks, "older_upload", info.OlderUploadTasks)

	var completed atomic.Int64
	report := func(kind models.TaskKind, rec *models.MediaRecord) {
		if opts.OnTaskCompleted != nil {
			opts.OnTaskCompleted(kind, rec, int(completed.Add(1)))
		}
	}

	passStart := time.Now()
	if err := s.reconcileRemote(ctx, log, account, cursor, passStart, report); err != nil {
		return err
	}
	log.Info(ctx, "remote photos reconciled")

	// quota guard shared by both upload sweeps; reserves the size of every
	// item that actually starts a transfer
	var quotaMu sync.Mutex
	used := usage.UsedBytes
	quota := func(size int64) error {
		quotaMu.Lock()
		defer quotaMu.Unlock()
		if usage.LimitBytes > 0 && used+size > usage.LimitBytes {
			return common.ErrQuotaExceeded
		}
		used += size
		return nil
	}

	var halted atomic.Bool
	onQuotaExceeded := func() {
		if halted.CompareAndSwap(false, true) {
			log.Warn(ctx, "storage limit reached, halting upload sweep")
			if opts.OnStorageLimitReached != nil {
				opts.OnStorageLimitReached()
			}
		}
	}

	uploadQueue := queue.New(ctx, queue.Config{
		Concurrency:     s.cfg.UploadConcurrency,
		MaxRetries:      s.cfg.MaxRetries,
		MinTaskDuration: s.cfg.MinTaskDuration,
	}, log)

	err = s.uploadLocal(ctx, log, account, uploadQueue, newest, nil, quota, &halted, onQuotaExceeded, report)
	if err != nil {
		return err
	}
	if werr := uploadQueue.Wait(context.WithoutCancel(ctx)); werr != nil {
		return werr
	}
	log.Info(ctx, "newer local photos uploaded")

	if oldest == nil {
		log.Info(ctx, "skipped older local photos upload")
	} else {
		err = s.uploadLocal(ctx, log, account, uploadQueue, nil, oldest, quota, &halted, onQuotaExceeded, report)
		if err != nil {
			return err
		}
		if werr := uploadQueue.Wait(context.WithoutCancel(ctx)); werr != nil {
			return werr
		}
		log.Info(ctx, "older local photos uploaded")
	}

	if ctx.Err() != nil {
		log.Info(context.WithoutCancel(ctx), "sync aborted")
	} else {
		log.Info(ctx, "sync finished")
	}
	return nil
}

// stageCameraRoll copies the device media store into the staging table,
// page by page.
func (s *SyncService) stageCameraRoll(ctx context.Context, log logging.Logger) error {
	staged := 0
	cursor := ""
	for {
		items, next, err := s.library.Page(ctx, cursor, s.cfg.LibraryPageSize)
		if err != nil {
			return fmt.Errorf("enumerate device media: %w", err)
		}
		if len(items) > 0 {
			if err := s.ledger.StageLocalItems(ctx, items); err != nil {
				return err
			}
			staged += len(items)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	log.Info(ctx, "copied device media to staging table", "count", staged)
	return nil
}

func (s *SyncService) calculateSyncInfo(ctx context.Context, cursor time.Time, newest, oldest *time.Time) (*models.SyncInfo, error) {
	_, downloadCount, err := s.catalog.GetChangedSince(ctx, cursor, 0, 1)
	if err != nil {
		return nil, err
	}

	newerCount, err := s.ledger.CountPendingUploads(ctx, newest, nil)
	if err != nil {
		return nil, err
	}
	var olderCount int64
	if oldest != nil {
		olderCount, err = s.ledger.CountPendingUploads(ctx, nil, oldest)
		if err != nil {
			return nil, err
		}
	}

	return &models.SyncInfo{
		TotalTasks:       int(downloadCount) + int(newerCount) + int(olderCount),
		DownloadTasks:    int(downloadCount),
		NewerUploadTasks: int(newerCount),
		OlderUploadTasks: int(olderCount),
	}, nil
}

// reconcileRemote walks remote records whose status changed at or after the
// cursor and brings the ledger up to date, enqueuing download tasks for
// records this device has never seen. The cursor then advances to the pass
// start time: records changed by other devices while this pass runs are
// re-examined next time instead of being skipped forever.
func (s *SyncService) reconcileRemote(ctx context.Context, log logging.Logger, account *models.Account,
	cursor, passStart time.Time, report func(models.TaskKind, *models.MediaRecord)) error {

	q := queue.New(ctx, queue.Config{
		Concurrency:     s.cfg.DownloadConcurrency,
		MaxRetries:      s.cfg.MaxRetries,
		MinTaskDuration: s.cfg.MinTaskDuration,
	}, log)

	if !cursor.IsZero() {
		log.Info(ctx, "last remote reconciliation", "at", cursor)
	}

	skip := 0
	pageDone := false
	for !pageDone {
		recs, _, err := s.catalog.GetChangedSince(ctx, cursor, skip, s.cfg.RemotePageSize)
		if err != nil {
			q.Abort()
			return err
		}

		for i := range recs {
			if ctx.Err() != nil {
				q.Abort()
				return q.Wait(context.WithoutCancel(ctx))
			}
			rec := recs[i]

			existing, err := s.ledger.GetByRemoteID(ctx, rec.ID)
			switch {
			case err == nil:
				if uerr := s.ledger.UpdateStatusByRemoteID(ctx, rec.ID, rec.Status); uerr != nil {
					q.Abort()
					return uerr
				}
				report(models.TaskDownload, existing)
			case errors.Is(err, common.ErrorNotFound):
				q.AddTask(&queue.Task{
					Kind: models.TaskDownload,
					Run: func(tctx context.Context) (*models.MediaRecord, error) {
						previewPath, perr := s.downloads.PullPreview(tctx, account, &rec)
						if perr != nil {
							return nil, perr
						}
						committed := rec
						committed.PreviewPath = previewPath
						if uerr := s.ledger.Upsert(tctx, &committed); uerr != nil {
							return nil, uerr
						}
						return &committed, nil
					},
					OnComplete: func(r *models.MediaRecord, err error) {
						if err != nil {
							if errors.Is(err, common.ErrRemoteMissing) {
								log.Warn(ctx, "remote object gone, skipping", "id", rec.ID)
							} else {
								log.Error(ctx, "download failed", "id", rec.ID, "error", err)
							}
							report(models.TaskDownload, nil)
							return
						}
						report(models.TaskDownload, r)
					},
				})
			default:
				q.Abort()
				return err
			}
		}

		if len(recs) < s.cfg.RemotePageSize {
			pageDone = true
		} else {
			skip += s.cfg.RemotePageSize
		}
	}

	// advanced only after the page loop completes, and to the pass start,
	// never the pass end
	if ctx.Err() == nil {
		if err := s.ledger.SetRemoteSyncCursor(ctx, passStart); err != nil {
			q.Abort()
			return err
		}
	} else {
		q.Abort()
	}

	return q.Wait(context.WithoutCancel(ctx))
}

// uploadLocal enqueues upload tasks for one staged sweep, paged. Enqueuing
// stops as soon as the pass is cancelled or the quota halt trips;
// already-queued tasks drain normally.
func (s *SyncService) uploadLocal(ctx context.Context, log logging.Logger, account *models.Account,
	q *queue.Queue, from, to *time.Time, quota QuotaGuard, halted *atomic.Bool,
	onQuotaExceeded func(), report func(models.TaskKind, *models.MediaRecord)) error {

	log.Info(ctx, "uploading local photos", "from", from, "to", to)

	offset := 0
	for {
		if ctx.Err() != nil || halted.Load() {
			return nil
		}
		items, err := s.ledger.ListPendingUploads(ctx, ledger.PageQuery{
			From: from, To: to, Limit: s.cfg.LocalPageSize, Offset: offset,
		})
		if err != nil {
			return err
		}

		for i := range items {
			if ctx.Err() != nil || halted.Load() {
				return nil
			}
			item := items[i]
			q.AddTask(&queue.Task{
				Kind: models.TaskUpload,
				Run: func(tctx context.Context) (*models.MediaRecord, error) {
					return s.uploads.Upload(tctx, account, item, quota, nil)
				},
				OnComplete: func(rec *models.MediaRecord, err error) {
					if err != nil {
						if errors.Is(err, common.ErrQuotaExceeded) {
							onQuotaExceeded()
							return
						}
						log.Error(ctx, "upload failed", "name", item.Name, "error", err)
						report(models.TaskUpload, nil)
						return
					}
					report(models.TaskUpload, rec)
				},
			})
		}

		if len(items) < s.cfg.LocalPageSize {
			return nil
		}
		offset += len(items)
	}
}
