package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/pixelvault/internal/client/services"
)

const listPageSize = 20

func (a *App) count(ctx context.Context) {
	n, err := a.mediaSvc.CountPhotos(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	fmt.Printf("%d photos\n", n)
}

func (a *App) list(ctx context.Context) {
	offset := 0
	for {
		recs, err := a.mediaSvc.ListPhotos(ctx, listPageSize, offset)
		if err != nil {
			log.Printf("Error: %s", err.Error())
			return
		}
		for _, rec := range recs {
			fmt.Printf("%s  %s  %s  %s\n",
				rec.ID, rec.TakenAt.Format("2006-01-02 15:04"), rec.Status, rec.DisplayName())
		}
		if len(recs) < listPageSize {
			return
		}
		offset += len(recs)
	}
}

func (a *App) download(ctx context.Context) {
	id, err := getSimpleText(a.reader, "Enter photo id to download", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	rec, err := a.mediaSvc.DownloadPhoto(ctx, id, services.DownloadOptions{
		OnDownloadProgress: progressPrinter("downloading"),
		OnDecryptProgress:  progressPrinter("decrypting"),
	})
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	fmt.Printf("Saved to %s\n", rec.FullPath)
}

func (a *App) delete(ctx context.Context) {
	id, err := getSimpleText(a.reader, "Enter photo id to delete", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := a.mediaSvc.DeletePhoto(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	fmt.Println("Trashed")
}

func (a *App) usage(ctx context.Context) {
	u, err := a.catalog.Usage(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	if u.LimitBytes > 0 {
		fmt.Printf("Used %d of %d bytes (%.1f%%)\n", u.UsedBytes, u.LimitBytes,
			float64(u.UsedBytes)/float64(u.LimitBytes)*100)
	} else {
		fmt.Printf("Used %d bytes (no limit)\n", u.UsedBytes)
	}
}

func (a *App) clear(ctx context.Context) {
	answer, err := getSimpleText(a.reader, "Wipe the local ledger, session and cached media? (y/N)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if !strings.EqualFold(answer, "y") {
		fmt.Println("Aborted")
		return
	}

	if err := a.mediaSvc.ClearData(ctx); err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	a.account = nil
	a.catalog.SetAccessToken("")
	fmt.Println("Local data cleared")
}

// progressPrinter reports coarse transfer progress: one line per quarter.
func progressPrinter(verb string) func(float64) {
	last := -1
	return func(fraction float64) {
		quarter := int(fraction * 4)
		if quarter > last {
			last = quarter
			fmt.Printf("%s... %d%%\n", verb, quarter*25)
		}
	}
}
