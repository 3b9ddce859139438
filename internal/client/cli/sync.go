package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/client/services"
)

// sync starts a pass in the background so the REPL stays responsive and
// "cancel" can interrupt it.
func (a *App) sync(ctx context.Context) {
	go func() {
		err := a.syncSvc.Run(ctx, services.SyncOptions{
			OnStart: func(info models.SyncInfo) {
				fmt.Printf("Sync started: %d tasks (%d download, %d new upload, %d older upload)\n",
					info.TotalTasks, info.DownloadTasks, info.NewerUploadTasks, info.OlderUploadTasks)
			},
			OnTaskCompleted: func(kind models.TaskKind, rec *models.MediaRecord, completed int) {
				name := "(failed)"
				if rec != nil {
					name = rec.DisplayName()
				}
				fmt.Printf("[%d] %s %s\n", completed, kind, name)
			},
			OnStorageLimitReached: func() {
				fmt.Println("Storage limit reached, remaining uploads skipped")
			},
		})
		switch {
		case errors.Is(err, services.ErrSyncInProgress):
			fmt.Println("Sync already running")
		case err != nil:
			log.Printf("Sync error: %s", err.Error())
		default:
			fmt.Println("Sync finished")
		}
	}()
}

func (a *App) cancelSync() {
	a.syncSvc.Cancel()
	fmt.Println("Cancelling sync...")
}
