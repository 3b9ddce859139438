package cli

import (
	"bufio"
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/pixelvault/internal/client/client"
	"github.com/dmitrijs2005/pixelvault/internal/client/config"
	"github.com/dmitrijs2005/pixelvault/internal/client/medialib"
	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/preview"
	"github.com/dmitrijs2005/pixelvault/internal/client/services"
	"github.com/dmitrijs2005/pixelvault/internal/logging"
	"github.com/dmitrijs2005/pixelvault/internal/netx"

	_ "modernc.org/sqlite"
)

type App struct {
	config   *config.Config
	repos    *client.Repositories
	catalog  *client.HTTPClient
	syncSvc  *services.SyncService
	mediaSvc *services.MediaService
	account  *models.Account
	reader   *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.APIEndpoint)

	store, err := netx.NewS3Store(ctx, netx.S3Config{
		Region:          c.S3Region,
		Endpoint:        c.S3Endpoint,
		AccessKeyID:     c.S3AccessKey,
		SecretAccessKey: c.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}

	dirs, err := services.NewDirs(c.DataDir)
	if err != nil {
		return nil, err
	}

	library := medialib.NewDirectoryLibrary(c.SourceDir)
	resizer := preview.NewImageResizer(dirs.Tmp)

	uploads := services.NewUploadService(repos.Ledger, apiClient, store, resizer, dirs, logger)
	downloads := services.NewDownloadService(store, dirs, logger)

	syncSvc := services.NewSyncService(repos.Ledger, repos.Session, apiClient, library, uploads, downloads, dirs,
		services.SyncConfig{
			UploadConcurrency:   c.UploadConcurrency,
			DownloadConcurrency: c.DownloadConcurrency,
			MaxRetries:          c.MaxRetries,
			MinTaskDuration:     c.MinTaskDuration,
		}, logger)
	mediaSvc := services.NewMediaService(repos.Ledger, repos.Session, apiClient, downloads, dirs, logger)

	a := &App{
		config:   c,
		repos:    repos,
		catalog:  apiClient,
		syncSvc:  syncSvc,
		mediaSvc: mediaSvc,
		reader:   bufio.NewReader(os.Stdin),
	}

	// a session stored by a previous run signs the user back in
	if account, err := repos.Session.GetAccount(ctx); err == nil && account != nil {
		a.account = account
		apiClient.SetAccessToken(account.AccessToken)
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.catalog.Close()
	defer a.repos.DB.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.account.Valid()
}
