// Package medialib abstracts the device media store: an enumerable,
// restartable sequence of local media records with stable per-item
// identifiers.
package medialib

import (
	"context"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
)

// Library enumerates the device's media items in pages. An empty cursor
// starts from the beginning; an empty next cursor marks the end. Enumeration
// is restartable: the same cursor always resumes from the same point.
type Library interface {
	Page(ctx context.Context, cursor string, limit int) (items []models.LocalMediaItem, next string, err error)
}
