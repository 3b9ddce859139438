package services

import (
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/pixelvault/internal/filex"
)

// Dirs is the client's on-disk layout: full-size cache, preview cache and the
// per-pass temp area wiped when a sync pass exits.
type Dirs struct {
	Root     string
	Full     string
	Previews string
	Tmp      string
}

func NewDirs(root string) (*Dirs, error) {
	if _, err := filex.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}
	d := &Dirs{
		Root:     root,
		Full:     filepath.Join(root, "full"),
		Previews: filepath.Join(root, "previews"),
		Tmp:      filepath.Join(root, "tmp"),
	}
	for _, dir := range []string{d.Full, d.Previews, d.Tmp} {
		if _, err := filex.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to prepare data dir: %w", err)
		}
	}
	return d, nil
}

// ClearTmp wipes the temp area.
func (d *Dirs) ClearTmp() error {
	return filex.ClearDir(d.Tmp)
}

// ClearAll wipes every cached file, keeping the directories.
func (d *Dirs) ClearAll() error {
	for _, dir := range []string{d.Full, d.Previews, d.Tmp} {
		if err := filex.ClearDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// PreviewPath is the cache location for a record's preview.
func (d *Dirs) PreviewPath(remoteID, format string) string {
	return filepath.Join(d.Previews, remoteID+"."+format)
}

// FullPath is the cache location for a record's full-size content.
func (d *Dirs) FullPath(displayName string) string {
	return filepath.Join(d.Full, displayName)
}
