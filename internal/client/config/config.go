package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the PixelVault CLI.
//
// Fields:
//   - APIEndpoint: base URL of the photo catalog REST API.
//   - DatabasePath: path to the local SQLite ledger.
//   - DataDir: root directory for downloaded media, previews and tmp files.
//   - SourceDir: directory scanned for local media to upload.
//   - S3Endpoint/S3Region/S3AccessKey/S3SecretKey: object store access.
//   - UploadConcurrency/DownloadConcurrency: transfer queue widths.
//   - MaxRetries: retry ceiling per transfer task.
//   - MinTaskDuration: minimum wall time a transfer task occupies its slot.
//
// Units: MinTaskDuration is a time.Duration (e.g., time.Second).
type Config struct {
	APIEndpoint         string
	DatabasePath        string
	DataDir             string
	SourceDir           string
	S3Endpoint          string
	S3Region            string
	S3AccessKey         string
	S3SecretKey         string
	UploadConcurrency   int
	DownloadConcurrency int
	MaxRetries          int
	MinTaskDuration     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIEndpoint = "http://127.0.0.1:8080"
	c.DataDir = ".pixelvault"
	c.DatabasePath = filepath.Join(c.DataDir, "ledger.db")
	c.SourceDir = "Pictures"
	c.S3Endpoint = "http://127.0.0.1:9000"
	c.S3Region = "us-east-1"
	c.UploadConcurrency = 3
	c.DownloadConcurrency = 2
	c.MaxRetries = 3
	c.MinTaskDuration = time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
