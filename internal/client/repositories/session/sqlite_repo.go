package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
)

const accountKey = "account"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetAccount(ctx context.Context) (*models.Account, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `select value from session where key = ?`, accountKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session account: %w", err)
	}

	account := &models.Account{}
	if err := json.Unmarshal(value, account); err != nil {
		return nil, fmt.Errorf("failed to decode session account: %w", err)
	}
	return account, nil
}

func (r *SQLiteRepository) SetAccount(ctx context.Context, account *models.Account) error {
	value, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode session account: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		insert into session (key, value) values (?, ?)
		on conflict(key) do update set value = excluded.value
	`, accountKey, value)
	if err != nil {
		return fmt.Errorf("failed to set session account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
