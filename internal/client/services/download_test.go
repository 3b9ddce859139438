package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
)

func TestPull_WritesDestinationOnce(t *testing.T) {
	store := newFakeStore()
	store.objects["obj-1"] = []byte("full-size bytes")
	dirs := testDirs(t)
	svc := NewDownloadService(store, dirs, testLogger())
	ctx := context.Background()

	dest := filepath.Join(t.TempDir(), "IMG_1.jpg")

	got, err := svc.Pull(ctx, testAccount(), "obj-1", dest, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, dest, got)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("full-size bytes"), data)
	assert.Equal(t, 1, store.downloadCount())

	// repeating the pull is a no-op: interrupted passes retry safely
	got, err = svc.Pull(ctx, testAccount(), "obj-1", dest, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.Equal(t, 1, store.downloadCount())
}

func TestPull_InvalidAccount(t *testing.T) {
	svc := NewDownloadService(newFakeStore(), testDirs(t), testLogger())

	_, err := svc.Pull(context.Background(), &models.Account{}, "obj-1", filepath.Join(t.TempDir(), "x.jpg"), nil, nil)
	assert.ErrorIs(t, err, common.ErrPrecondition)
}

func TestPullPreview(t *testing.T) {
	store := newFakeStore()
	store.objects["prev-1"] = []byte("thumb")
	dirs := testDirs(t)
	svc := NewDownloadService(store, dirs, testLogger())
	ctx := context.Background()

	rec := &models.MediaRecord{ID: "srv-1", PreviewID: "prev-1"}
	path, err := svc.PullPreview(ctx, testAccount(), rec)
	require.NoError(t, err)
	assert.Equal(t, dirs.PreviewPath("srv-1", "jpg"), path)
	assert.FileExists(t, path)

	// a record without a preview yields no path and no transfer
	bare := &models.MediaRecord{ID: "srv-2"}
	path, err = svc.PullPreview(ctx, testAccount(), bare)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 1, store.downloadCount())
}
