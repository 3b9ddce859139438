package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pixelvault/internal/client/migrations"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/ledger"
	"github.com/dmitrijs2005/pixelvault/internal/client/repositories/session"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the local persistence layer built on one SQLite
// database: the sync ledger and the session store.
type Repositories struct {
	Ledger  ledger.Repository
	Session session.Repository
	DB      *sql.DB
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the local database at dsn, applies
// migrations and returns the repository set.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Ledger:  ledger.NewSQLiteRepository(db),
		Session: session.NewSQLiteRepository(db),
		DB:      db,
	}, nil
}
