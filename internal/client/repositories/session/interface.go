package session

import (
	"context"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
)

// Repository stores the signed-in account between runs. The account supplies
// the owner, device and credentials every sync pass depends on.
type Repository interface {
	// GetAccount returns the stored account, or nil when signed out.
	GetAccount(ctx context.Context) (*models.Account, error)

	// SetAccount persists the account.
	SetAccount(ctx context.Context, account *models.Account) error

	// Clear removes all session data. Used on sign-out.
	Clear(ctx context.Context) error
}
