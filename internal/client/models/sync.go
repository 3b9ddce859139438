package models

import "time"

// TaskKind distinguishes transfer task classes.
type TaskKind string

const (
	TaskUpload   TaskKind = "upload"
	TaskDownload TaskKind = "download"
)

// SyncInfo is the per-pass task count snapshot reported once the remote
// reconciliation scope is known. Discarded after the pass starts.
type SyncInfo struct {
	TotalTasks       int
	DownloadTasks    int
	NewerUploadTasks int
	OlderUploadTasks int
}

// Account carries the identity and credentials a sync pass runs under.
// Supplied by the session layer; a missing account is a precondition failure.
type Account struct {
	UserID      string
	DeviceID    string
	Bucket      string
	AccessToken string

	// BucketKey is the secret all per-object encryption keys derive from.
	BucketKey []byte
}

// Valid reports whether the account carries everything a transfer needs.
func (a *Account) Valid() bool {
	return a != nil && a.UserID != "" && a.DeviceID != "" && a.Bucket != "" && len(a.BucketKey) > 0
}

// Usage is the remote storage accounting snapshot used by the quota guard.
type Usage struct {
	UsedBytes  int64
	LimitBytes int64
}

// CreateMediaData is the metadata submitted to the remote catalog when
// registering an uploaded item.
type CreateMediaData struct {
	Name        string
	Format      string
	ItemType    ItemType
	TakenAt     time.Time
	Width       int
	Height      int
	SizeBytes   int64
	OwnerID     string
	DeviceID    string
	ContentHash string
	PreviewID   string
	ContentID   string
}

// Preview describes a generated thumbnail on the local filesystem.
type Preview struct {
	Path      string
	Width     int
	Height    int
	SizeBytes int64
	Format    string
}
