package medialib

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
)

var videoFormats = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true, "webm": true,
}

var imageFormats = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "heic": true, "webp": true,
}

// DirectoryLibrary enumerates media files in one directory, sorted by name so
// pagination is stable across calls. The absolute file path doubles as the
// device-stable item identifier; capture time falls back to the file's
// modification time.
type DirectoryLibrary struct {
	dir string
}

func NewDirectoryLibrary(dir string) *DirectoryLibrary {
	return &DirectoryLibrary{dir: dir}
}

func (l *DirectoryLibrary) Page(ctx context.Context, cursor string, limit int) ([]models.LocalMediaItem, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrAborted, err)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read media dir: %v", common.ErrIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_, format := models.SplitName(e.Name())
		if !imageFormats[format] && !videoFormats[format] {
			continue
		}
		// cursor is the last name of the previous page
		if cursor != "" && e.Name() <= cursor {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if len(names) > limit {
		names = names[:limit]
	}

	items := make([]models.LocalMediaItem, 0, len(names))
	for _, filename := range names {
		item, err := l.describe(filename)
		if err != nil {
			return nil, "", err
		}
		items = append(items, *item)
	}

	next := ""
	if len(names) == limit && limit > 0 {
		next = names[len(names)-1]
	}
	return items, next, nil
}

func (l *DirectoryLibrary) describe(filename string) (*models.LocalMediaItem, error) {
	path := filepath.Join(l.dir, filename)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", common.ErrIO, filename, err)
	}

	name, format := models.SplitName(filename)
	item := &models.LocalMediaItem{
		Ref:       path,
		Name:      name,
		TakenAt:   info.ModTime().UTC(),
		SizeBytes: info.Size(),
		Format:    format,
		ItemType:  models.ItemTypeImage,
	}
	if videoFormats[strings.ToLower(format)] {
		item.ItemType = models.ItemTypeVideo
		return item, nil
	}

	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			item.Width = cfg.Width
			item.Height = cfg.Height
		}
		f.Close()
	}
	return item, nil
}
