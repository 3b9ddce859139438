// Package config loads runtime configuration for the PixelVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the catalog REST API
//	-d string   path to the local ledger database
//	-m string   data directory for media, previews and tmp files
//	-r string   directory scanned for local media to upload
//	-s string   object store endpoint URL
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "1s" or integer nanoseconds:
//
//	{
//	  "api_endpoint": "http://127.0.0.1:8080",
//	  "database_path": ".pixelvault/ledger.db",
//	  "data_dir": ".pixelvault",
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "upload_concurrency": 3,
//	  "min_task_duration": "1s"
//	}
//
// Primary API
//
//   - type Config                     — holds endpoint, storage and queue settings
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
