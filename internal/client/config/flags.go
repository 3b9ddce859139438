package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/pixelvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the catalog API (default from Config)
//	-d string   path to the local ledger database
//	-m string   data directory for media, previews and tmp files
//	-r string   directory scanned for local media to upload
//	-s string   object store endpoint URL
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-r", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIEndpoint, "a", cfg.APIEndpoint, "base URL of the catalog API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local ledger database")
	fs.StringVar(&cfg.DataDir, "m", cfg.DataDir, "data directory for media files")
	fs.StringVar(&cfg.SourceDir, "r", cfg.SourceDir, "directory scanned for local media")
	fs.StringVar(&cfg.S3Endpoint, "s", cfg.S3Endpoint, "object store endpoint URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
