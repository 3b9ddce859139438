package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pixelvault/internal/client/client"
	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
	"github.com/dmitrijs2005/pixelvault/internal/netx"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupLedger(t *testing.T) ledger.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE media (
  row_id INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  taken_at INTEGER NOT NULL,
  width INTEGER NOT NULL DEFAULT 0,
  height INTEGER NOT NULL DEFAULT 0,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  format TEXT NOT NULL DEFAULT '',
  item_type TEXT NOT NULL DEFAULT 'image',
  owner_id TEXT NOT NULL DEFAULT '',
  device_id TEXT NOT NULL DEFAULT '',
  content_hash TEXT NOT NULL,
  status TEXT NOT NULL,
  preview_id TEXT NOT NULL DEFAULT '',
  content_id TEXT NOT NULL DEFAULT '',
  preview_path TEXT NOT NULL DEFAULT '',
  full_path TEXT NOT NULL DEFAULT '',
  status_changed_at INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX idx_media_content_hash ON media (content_hash);
CREATE TABLE sync_state (key TEXT PRIMARY KEY, value TEXT NOT NULL);
CREATE TABLE camera_roll (
  row_id INTEGER PRIMARY KEY AUTOINCREMENT,
  ref TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  taken_at INTEGER NOT NULL,
  width INTEGER NOT NULL DEFAULT 0,
  height INTEGER NOT NULL DEFAULT 0,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  format TEXT NOT NULL DEFAULT '',
  item_type TEXT NOT NULL DEFAULT 'image'
);
`)
	require.NoError(t, err)
	return ledger.NewSQLiteRepository(db)
}

func testAccount() *models.Account {
	return &models.Account{
		UserID:      "u1",
		DeviceID:    "dev1",
		Bucket:      "bucket1",
		AccessToken: "token",
		BucketKey:   []byte("0123456789abcdef0123456789abcdef"),
	}
}

func testDirs(t *testing.T) *Dirs {
	t.Helper()
	dirs, err := NewDirs(t.TempDir())
	require.NoError(t, err)
	return dirs
}

func writeLocalFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// fakeStore is an in-memory netx.ObjectStore.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	nextID    int
	uploads   []string // paths, in upload order
	downloads []string // object ids, in download order

	uploadErr   error
	downloadErr error
	uploadHold  chan struct{} // when set, Upload blocks until closed or ctx ends

	started atomic.Int32 // upload attempts, including held ones
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Upload(ctx context.Context, path, bucket string, bucketKey []byte, progress netx.Progress) (string, error) {
	f.started.Add(1)
	if f.uploadHold != nil {
		select {
		case <-f.uploadHold:
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", common.ErrAborted, ctx.Err())
		}
	}
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	if progress != nil {
		progress(1)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("obj-%d", f.nextID)
	f.objects[id] = data
	f.uploads = append(f.uploads, path)
	return id, nil
}

func (f *fakeStore) Download(ctx context.Context, objectID, bucket string, bucketKey []byte, destPath string,
	downloadProgress, decryptProgress netx.Progress) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	f.mu.Lock()
	data, ok := f.objects[objectID]
	f.downloads = append(f.downloads, objectID)
	f.mu.Unlock()
	if !ok {
		data = []byte("remote bytes")
	}
	if downloadProgress != nil {
		downloadProgress(1)
	}
	if decryptProgress != nil {
		decryptProgress(1)
	}
	return os.WriteFile(destPath, data, 0o600)
}

func (f *fakeStore) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeStore) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

// fakeCatalog is an in-memory client.Client keyed by content hash, so
// find-or-create converges concurrent registrations the way the real
// catalog does.
type fakeCatalog struct {
	client.Client

	mu      sync.Mutex
	byHash  map[string]*models.MediaRecord
	nextID  int
	changed []models.MediaRecord
	usage   models.Usage

	deleted    []string
	createdIDs []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{byHash: map[string]*models.MediaRecord{}}
}

func (f *fakeCatalog) Close() error                   { return nil }
func (f *fakeCatalog) Ping(ctx context.Context) error { return nil }

func (f *fakeCatalog) GetChangedSince(ctx context.Context, since time.Time, skip, limit int) ([]models.MediaRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.MediaRecord
	for _, rec := range f.changed {
		if since.IsZero() || !rec.StatusChangedAt.Before(since) {
			matched = append(matched, rec)
		}
	}
	total := int64(len(matched))
	if skip >= len(matched) {
		return nil, total, nil
	}
	matched = matched[skip:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeCatalog) FindOrCreateMedia(ctx context.Context, data models.CreateMediaData) (*models.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.byHash[data.ContentHash]; ok {
		return rec, nil
	}
	f.nextID++
	rec := &models.MediaRecord{
		ID:          fmt.Sprintf("srv-%d", f.nextID),
		Name:        data.Name,
		TakenAt:     data.TakenAt,
		Width:       data.Width,
		Height:      data.Height,
		SizeBytes:   data.SizeBytes,
		Format:      data.Format,
		ItemType:    data.ItemType,
		OwnerID:     data.OwnerID,
		DeviceID:    data.DeviceID,
		ContentHash: data.ContentHash,
		Status:      models.StatusSynced,
		PreviewID:   data.PreviewID,
		ContentID:   data.ContentID,
	}
	f.byHash[data.ContentHash] = rec
	f.createdIDs = append(f.createdIDs, rec.ID)
	return rec, nil
}

func (f *fakeCatalog) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) Usage(ctx context.Context) (models.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage, nil
}

// fakeSession keeps the account in memory.
type fakeSession struct {
	mu      sync.Mutex
	account *models.Account
	cleared bool
}

func (s *fakeSession) GetAccount(ctx context.Context) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, nil
}

func (s *fakeSession) SetAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
	return nil
}

func (s *fakeSession) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
	s.cleared = true
	return nil
}

// fakeGenerator writes a tiny placeholder preview file instead of decoding
// real image bytes.
type fakeGenerator struct {
	tmpDir string

	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, srcPath string) (*models.Preview, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()

	path := filepath.Join(g.tmpDir, fmt.Sprintf("preview-%d.jpg", n))
	if err := os.WriteFile(path, []byte("thumb"), 0o600); err != nil {
		return nil, err
	}
	return &models.Preview{Path: path, Width: 128, Height: 128, SizeBytes: 5, Format: "jpg"}, nil
}

// fakeLibrary pages over a fixed item list.
type fakeLibrary struct {
	items []models.LocalMediaItem
}

func (l *fakeLibrary) Page(ctx context.Context, cursor string, limit int) ([]models.LocalMediaItem, string, error) {
	start := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &start)
	}
	if start >= len(l.items) {
		return nil, "", nil
	}
	end := start + limit
	if end > len(l.items) {
		end = len(l.items)
	}
	next := ""
	if end < len(l.items) {
		next = fmt.Sprintf("%d", end)
	}
	return l.items[start:end], next, nil
}
