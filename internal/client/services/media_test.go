package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/common"
)

func newMediaFixture(t *testing.T) (*MediaService, *fakeStore, *fakeCatalog, *fakeSession, *Dirs, ledger.Repository) {
	t.Helper()
	repo := setupLedger(t)
	store := newFakeStore()
	catalog := newFakeCatalog()
	session := &fakeSession{account: testAccount()}
	dirs := testDirs(t)
	downloads := NewDownloadService(store, dirs, testLogger())
	svc := NewMediaService(repo, session, catalog, downloads, dirs, testLogger())
	return svc, store, catalog, session, dirs, repo
}

func syncedRecord(id, hash, contentID string) *models.MediaRecord {
	return &models.MediaRecord{
		ID:          id,
		Name:        "IMG_" + id,
		Format:      "jpg",
		TakenAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		OwnerID:     "u1",
		ContentHash: hash,
		ContentID:   contentID,
		Status:      models.StatusSynced,
	}
}

func TestDownloadPhoto_FetchesAndCommits(t *testing.T) {
	svc, store, _, _, dirs, repo := newMediaFixture(t)
	ctx := context.Background()

	store.objects["c1"] = []byte("original bytes")
	require.NoError(t, repo.Upsert(ctx, syncedRecord("srv-1", "h1", "c1")))

	rec, err := svc.DownloadPhoto(ctx, "srv-1", DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, dirs.FullPath("IMG_srv-1.jpg"), rec.FullPath)
	assert.FileExists(t, rec.FullPath)
	assert.Equal(t, models.StatusSynced, rec.Status)

	stored, err := repo.GetByRemoteID(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, rec.FullPath, stored.FullPath)
	assert.Equal(t, models.StatusSynced, stored.Status)
	assert.Equal(t, 1, store.downloadCount())

	// a second request finds the file on disk and moves nothing
	again, err := svc.DownloadPhoto(ctx, "srv-1", DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, rec.FullPath, again.FullPath)
	assert.Equal(t, 1, store.downloadCount())
}

func TestDownloadPhoto_ExplicitDestination(t *testing.T) {
	svc, store, _, _, _, repo := newMediaFixture(t)
	ctx := context.Background()

	store.objects["c1"] = []byte("original bytes")
	require.NoError(t, repo.Upsert(ctx, syncedRecord("srv-1", "h1", "c1")))

	dest := filepath.Join(t.TempDir(), "picked.jpg")
	rec, err := svc.DownloadPhoto(ctx, "srv-1", DownloadOptions{ToPath: dest})
	require.NoError(t, err)
	assert.Equal(t, dest, rec.FullPath)
	assert.FileExists(t, dest)
}

func TestDownloadPhoto_FailureRestoresStatus(t *testing.T) {
	svc, store, _, _, _, repo := newMediaFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, syncedRecord("srv-1", "h1", "c1")))
	store.downloadErr = common.ErrTransfer

	_, err := svc.DownloadPhoto(ctx, "srv-1", DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrTransfer)

	stored, err := repo.GetByRemoteID(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, stored.Status, "the record stays fetchable after a failed pull")
}

func TestDownloadPhoto_UnknownRecord(t *testing.T) {
	svc, _, _, _, _, _ := newMediaFixture(t)

	_, err := svc.DownloadPhoto(context.Background(), "nope", DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDownloadPhoto_NoRemoteContent(t *testing.T) {
	svc, _, _, _, _, repo := newMediaFixture(t)
	ctx := context.Background()

	rec := syncedRecord("srv-1", "h1", "")
	require.NoError(t, repo.Upsert(ctx, rec))

	_, err := svc.DownloadPhoto(ctx, "srv-1", DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrPrecondition)
}

func TestDeletePhoto(t *testing.T) {
	svc, store, catalog, _, _, repo := newMediaFixture(t)
	ctx := context.Background()

	store.objects["c1"] = []byte("original bytes")
	require.NoError(t, repo.Upsert(ctx, syncedRecord("srv-1", "h1", "c1")))
	rec, err := svc.DownloadPhoto(ctx, "srv-1", DownloadOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePhoto(ctx, "srv-1"))

	assert.Equal(t, []string{"srv-1"}, catalog.deleted)
	stored, err := repo.GetByRemoteID(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrashed, stored.Status)
	assert.NoFileExists(t, rec.FullPath)

	n, err := svc.CountPhotos(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "trashed records drop out of the count")
}

func TestListAndCountPhotos(t *testing.T) {
	svc, _, _, _, _, repo := newMediaFixture(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := syncedRecord("srv-"+id, "h-"+id, "c-"+id)
		rec.TakenAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Upsert(ctx, rec))
	}

	n, err := svc.CountPhotos(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recs, err := svc.ListPhotos(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "srv-c", recs[0].ID, "newest first")
}

func TestClearData(t *testing.T) {
	svc, _, _, session, dirs, repo := newMediaFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, syncedRecord("srv-1", "h1", "c1")))
	writeLocalFile(t, dirs.Full, "IMG.jpg", []byte("x"))

	require.NoError(t, svc.ClearData(ctx))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, session.cleared)
	assert.NoFileExists(t, filepath.Join(dirs.Full, "IMG.jpg"))
}
