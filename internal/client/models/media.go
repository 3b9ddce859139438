// Package models defines client-side data models used by the PixelVault
// photo sync engine.
package models

import (
	"strings"
	"time"
)

// ItemType classifies a media item kind.
type ItemType string

const (
	ItemTypeImage ItemType = "image"
	ItemTypeVideo ItemType = "video"
)

// MediaStatus is the sync lifecycle state of a media record.
//
// Local -> Uploading -> Synced, or Synced (remote only) -> Downloading ->
// Synced (local and remote). Trashed is reachable from any non-terminal state
// and is terminal for sync purposes.
type MediaStatus string

const (
	StatusLocal       MediaStatus = "local"
	StatusUploading   MediaStatus = "uploading"
	StatusSynced      MediaStatus = "synced"
	StatusDownloading MediaStatus = "downloading"
	StatusTrashed     MediaStatus = "trashed"
)

// CanTransition reports whether moving from s to next is a forward step in
// the lifecycle. The ledger never un-syncs a record without explicit deletion.
func (s MediaStatus) CanTransition(next MediaStatus) bool {
	if s == next {
		return true
	}
	if s == StatusTrashed {
		return false
	}
	if next == StatusTrashed {
		return true
	}
	switch s {
	case StatusLocal:
		return next == StatusUploading || next == StatusSynced
	case StatusUploading:
		return next == StatusSynced
	case StatusSynced:
		return next == StatusDownloading
	case StatusDownloading:
		return next == StatusSynced
	}
	return false
}

// MediaRecord is the canonical description of one photo or video known to
// the system. Before a successful remote registration ID is empty and the
// record is addressed by ContentHash only.
type MediaRecord struct {
	// ID is the remote identifier, assigned on successful remote creation.
	ID string

	Name      string
	TakenAt   time.Time
	Width     int
	Height    int
	SizeBytes int64

	// Format is the extension-like tag, e.g. "jpg" or "mp4".
	Format   string
	ItemType ItemType

	OwnerID  string
	DeviceID string

	// ContentHash is the stable dedup key: sha256 over owner, name, capture
	// time and file bytes. Unique per logical photo across devices.
	ContentHash string

	Status MediaStatus

	// PreviewID and ContentID are remote object identifiers.
	PreviewID string
	ContentID string

	// PreviewPath and FullPath are local cache paths; empty when the
	// corresponding bytes are not on this device.
	PreviewPath string
	FullPath    string

	StatusChangedAt time.Time
}

// DisplayName returns the user-visible file name.
func (r *MediaRecord) DisplayName() string {
	if r.Format == "" {
		return r.Name
	}
	return r.Name + "." + r.Format
}

// LocalMediaItem is one entry of the device media store, staged into the
// ledger's camera-roll table before an upload sweep. Ref is the device-stable
// identifier (a filesystem path or platform asset URI).
type LocalMediaItem struct {
	Ref       string
	Name      string
	TakenAt   time.Time
	Width     int
	Height    int
	SizeBytes int64
	Format    string
	ItemType  ItemType
}

// DisplayName returns the user-visible file name.
func (i LocalMediaItem) DisplayName() string {
	if i.Format == "" {
		return i.Name
	}
	return i.Name + "." + i.Format
}

// SplitName breaks a file name into its logical name and extension tag.
func SplitName(filename string) (name, format string) {
	i := strings.LastIndex(filename, ".")
	if i <= 0 {
		return filename, ""
	}
	return filename[:i], strings.ToLower(filename[i+1:])
}
