package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/cryptox"
)

func noQuota(int64) error { return nil }

func newUploadFixture(t *testing.T) (*UploadService, *fakeStore, *fakeCatalog, *fakeGenerator, *Dirs, ledger.Repository) {
	t.Helper()
	repo := setupLedger(t)
	store := newFakeStore()
	catalog := newFakeCatalog()
	dirs := testDirs(t)
	gen := &fakeGenerator{tmpDir: dirs.Tmp}
	svc := NewUploadService(repo, catalog, store, gen, dirs, testLogger())
	return svc, store, catalog, gen, dirs, repo
}

func localItem(t *testing.T, dir, name string, data []byte, takenAt time.Time) models.LocalMediaItem {
	t.Helper()
	path := writeLocalFile(t, dir, name, data)
	logical, format := models.SplitName(name)
	return models.LocalMediaItem{
		Ref:       path,
		Name:      logical,
		TakenAt:   takenAt,
		SizeBytes: int64(len(data)),
		Format:    format,
		ItemType:  models.ItemTypeImage,
	}
}

func TestUpload_FullPipeline(t *testing.T) {
	svc, store, catalog, gen, dirs, lf := newUploadFixture(t)
	ctx := context.Background()
	account := testAccount()

	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("photo bytes"), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	var progressed bool
	rec, err := svc.Upload(ctx, account, item, noQuota, func(float64) { progressed = true })
	require.NoError(t, err)

	assert.Equal(t, "srv-1", rec.ID)
	assert.Equal(t, models.StatusSynced, rec.Status)
	assert.Equal(t, item.Ref, rec.FullPath)
	assert.NotEmpty(t, rec.PreviewID)
	assert.NotEmpty(t, rec.ContentID)
	assert.NotEqual(t, rec.PreviewID, rec.ContentID)
	assert.True(t, progressed)

	// preview ends up cached under the assigned remote id
	assert.FileExists(t, rec.PreviewPath)
	assert.Equal(t, dirs.PreviewPath(rec.ID, "jpg"), rec.PreviewPath)

	// persisted in the ledger
	stored, err := lf.GetByContentHash(ctx, rec.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, stored.Status)

	// preview then content
	assert.Equal(t, 2, store.uploadCount())
	assert.Equal(t, 1, gen.calls)
	assert.Len(t, catalog.createdIDs, 1)

	// scratch files do not outlive the pipeline
	entries, err := os.ReadDir(dirs.Tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_SkipsAlreadySyncedByNameAndDate(t *testing.T) {
	svc, store, _, _, _, lf := newUploadFixture(t)
	ctx := context.Background()
	account := testAccount()

	takenAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("photo bytes"), takenAt)

	require.NoError(t, lf.Upsert(ctx, &models.MediaRecord{
		ID: "srv-9", Name: item.Name, TakenAt: takenAt, OwnerID: account.UserID,
		ContentHash: "known", Status: models.StatusSynced,
	}))

	rec, err := svc.Upload(ctx, account, item, noQuota, nil)
	require.NoError(t, err)
	assert.Equal(t, "srv-9", rec.ID)
	assert.Zero(t, store.uploadCount(), "no bytes move for an already-synced item")
}

func TestUpload_DedupByContentHashAdoptsExistingRecord(t *testing.T) {
	svc, store, _, _, _, lf := newUploadFixture(t)
	ctx := context.Background()
	account := testAccount()

	takenAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("photo bytes"), takenAt)

	hash, err := cryptox.ContentHash(account.UserID, item.Name, takenAt, item.Ref)
	require.NoError(t, err)

	// the ledger row carries a different name and date, so the cheap pre-check
	// misses and only the hash gate can catch the duplicate
	require.NoError(t, lf.Upsert(ctx, &models.MediaRecord{
		ID: "srv-7", Name: "IMG_other", TakenAt: takenAt.Add(time.Hour), OwnerID: account.UserID,
		ContentHash: hash, Status: models.StatusSynced,
	}))

	rec, err := svc.Upload(ctx, account, item, noQuota, nil)
	require.NoError(t, err)
	assert.Equal(t, "srv-7", rec.ID)
	assert.Zero(t, store.uploadCount())

	n, err := lf.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpload_TrashedContentIsNeverReuploaded(t *testing.T) {
	svc, store, _, _, _, lf := newUploadFixture(t)
	ctx := context.Background()
	account := testAccount()

	takenAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("photo bytes"), takenAt)

	hash, err := cryptox.ContentHash(account.UserID, item.Name, takenAt, item.Ref)
	require.NoError(t, err)
	require.NoError(t, lf.Upsert(ctx, &models.MediaRecord{
		ID: "srv-3", Name: item.Name, TakenAt: takenAt, OwnerID: account.UserID,
		ContentHash: hash, Status: models.StatusTrashed,
	}))

	rec, err := svc.Upload(ctx, account, item, noQuota, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrashed, rec.Status)
	assert.Zero(t, store.uploadCount())
}

func TestUpload_QuotaRefusalStopsBeforeTransfer(t *testing.T) {
	svc, store, catalog, gen, _, _ := newUploadFixture(t)
	ctx := context.Background()

	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("photo bytes"), time.Now().UTC())

	quota := func(size int64) error { return common.ErrQuotaExceeded }

	_, err := svc.Upload(ctx, testAccount(), item, quota, nil)
	assert.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.Zero(t, store.uploadCount())
	assert.Zero(t, gen.calls)
	assert.Empty(t, catalog.createdIDs)
}

func TestUpload_InvalidAccountIsPreconditionFailure(t *testing.T) {
	svc, _, _, _, _, _ := newUploadFixture(t)

	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("x"), time.Now().UTC())

	_, err := svc.Upload(context.Background(), nil, item, noQuota, nil)
	assert.ErrorIs(t, err, common.ErrPrecondition)
	assert.False(t, common.IsRetryable(err), "precondition failures must not be retried")
}

func TestUpload_VideoGetsNoPreview(t *testing.T) {
	svc, store, _, gen, _, _ := newUploadFixture(t)
	ctx := context.Background()

	src := t.TempDir()
	item := localItem(t, src, "VID_1.mp4", []byte("video bytes"), time.Now().UTC())
	item.ItemType = models.ItemTypeVideo

	rec, err := svc.Upload(ctx, testAccount(), item, noQuota, nil)
	require.NoError(t, err)
	assert.Zero(t, gen.calls)
	assert.Empty(t, rec.PreviewID)
	assert.Empty(t, rec.PreviewPath)
	assert.Equal(t, 1, store.uploadCount(), "only the original moves")
}

func TestUpload_ConcurrentSameHashConvergesOnOneRecord(t *testing.T) {
	svc, _, catalog, _, _, lf := newUploadFixture(t)
	ctx := context.Background()
	account := testAccount()

	takenAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := t.TempDir()
	item := localItem(t, src, "IMG_1.jpg", []byte("photo bytes"), takenAt)

	const workers = 4
	results := make([]*models.MediaRecord, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Upload(ctx, account, item, noQuota, nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID, "all workers converge on one remote record")
	}

	assert.Len(t, catalog.createdIDs, 1, "the catalog registered the hash once")
	n, err := lf.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the ledger holds a single row for the hash")
}
