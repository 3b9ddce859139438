package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/dmitrijs2005/pixelvault/internal/dbx"
)

const remoteSyncCursorKey = "remote_sync_at"

// SQLiteRepository implements Repository on a local SQLite database.
// Capture times are stored as integer unix nanoseconds so range queries
// compare correctly.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const mediaColumns = `id, name, taken_at, width, height, size_bytes, format, item_type,
	owner_id, device_id, content_hash, status, preview_id, content_id,
	preview_path, full_path, status_changed_at`

func scanMedia(row interface{ Scan(...any) error }) (*models.MediaRecord, error) {
	r := &models.MediaRecord{}
	var takenAt, statusChangedAt int64
	err := row.Scan(&r.ID, &r.Name, &takenAt, &r.Width, &r.Height, &r.SizeBytes,
		&r.Format, &r.ItemType, &r.OwnerID, &r.DeviceID, &r.ContentHash, &r.Status,
		&r.PreviewID, &r.ContentID, &r.PreviewPath, &r.FullPath, &statusChangedAt)
	if err != nil {
		return nil, err
	}
	r.TakenAt = time.Unix(0, takenAt).UTC()
	if statusChangedAt != 0 {
		r.StatusChangedAt = time.Unix(0, statusChangedAt).UTC()
	}
	return r, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.MediaRecord, error) {
	rec, err := scanMedia(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetByContentHash(ctx context.Context, hash string) (*models.MediaRecord, error) {
	query := `select ` + mediaColumns + ` from media where content_hash=?`
	return r.getOne(ctx, query, hash)
}

func (r *SQLiteRepository) GetByNameAndDate(ctx context.Context, ownerID, name string, takenAt time.Time) (*models.MediaRecord, error) {
	query := `select ` + mediaColumns + ` from media where owner_id=? and name=? and taken_at=?`
	return r.getOne(ctx, query, ownerID, name, takenAt.UnixNano())
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, id string) (*models.MediaRecord, error) {
	query := `select ` + mediaColumns + ` from media where id=? and id<>''`
	return r.getOne(ctx, query, id)
}

// Upsert inserts or updates by content hash inside one transaction, so two
// tasks racing on the same hash cannot create duplicate rows. Metadata is
// last-write-wins (the later committer's device becomes canonical); status
// moves forward only, and remote ids and local paths are never overwritten
// with empty values.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.MediaRecord) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		status := rec.Status
		row := tx.QueryRowContext(ctx, `select status from media where content_hash=?`, rec.ContentHash)
		var existing models.MediaStatus
		switch err := row.Scan(&existing); {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to read existing status: %w", err)
		default:
			if !existing.CanTransition(rec.Status) {
				status = existing
			}
		}

		query := `insert into media (` + mediaColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			on conflict(content_hash) do update set
				id = case when excluded.id='' then media.id else excluded.id end,
				name = excluded.name,
				taken_at = excluded.taken_at,
				width = excluded.width,
				height = excluded.height,
				size_bytes = excluded.size_bytes,
				format = excluded.format,
				item_type = excluded.item_type,
				owner_id = excluded.owner_id,
				device_id = excluded.device_id,
				status = excluded.status,
				preview_id = case when excluded.preview_id='' then media.preview_id else excluded.preview_id end,
				content_id = case when excluded.content_id='' then media.content_id else excluded.content_id end,
				preview_path = case when excluded.preview_path='' then media.preview_path else excluded.preview_path end,
				full_path = case when excluded.full_path='' then media.full_path else excluded.full_path end,
				status_changed_at = excluded.status_changed_at
		`
		statusChangedAt := rec.StatusChangedAt
		if statusChangedAt.IsZero() {
			statusChangedAt = time.Now()
		}
		_, err := tx.ExecContext(ctx, query, rec.ID, rec.Name, rec.TakenAt.UnixNano(),
			rec.Width, rec.Height, rec.SizeBytes, rec.Format, rec.ItemType,
			rec.OwnerID, rec.DeviceID, rec.ContentHash, status, rec.PreviewID,
			rec.ContentID, rec.PreviewPath, rec.FullPath, statusChangedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to upsert media: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) UpdateStatusByRemoteID(ctx context.Context, id string, status models.MediaStatus) error {
	query := `update media set status=?, status_changed_at=? where id=?`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteByRemoteID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `delete from media where id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `select count(*) from media where status<>?`, models.StatusTrashed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]models.MediaRecord, error) {
	query := `select ` + mediaColumns + ` from media where status<>?
		order by taken_at desc limit ? offset ?`
	rows, err := r.db.QueryContext(ctx, query, models.StatusTrashed, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var result []models.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) takenAtBound(ctx context.Context, agg string) (*time.Time, error) {
	var ns sql.NullInt64
	query := `select ` + agg + `(taken_at) from media where status<>'` + string(models.StatusTrashed) + `'`
	if err := r.db.QueryRowContext(ctx, query).Scan(&ns); err != nil {
		return nil, fmt.Errorf("failed to query capture time bound: %w", err)
	}
	if !ns.Valid {
		return nil, nil
	}
	t := time.Unix(0, ns.Int64).UTC()
	return &t, nil
}

func (r *SQLiteRepository) NewestTakenAt(ctx context.Context) (*time.Time, error) {
	return r.takenAtBound(ctx, "max")
}

func (r *SQLiteRepository) OldestTakenAt(ctx context.Context) (*time.Time, error) {
	return r.takenAtBound(ctx, "min")
}

func (r *SQLiteRepository) RemoteSyncCursor(ctx context.Context) (time.Time, error) {
	var value string
	row := r.db.QueryRowContext(ctx, `select value from sync_state where key=?`, remoteSyncCursorKey)
	switch err := row.Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, fmt.Errorf("failed to read sync cursor: %w", err)
	}
	ns, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt sync cursor %q: %w", value, err)
	}
	return time.Unix(0, ns).UTC(), nil
}

func (r *SQLiteRepository) SetRemoteSyncCursor(ctx context.Context, t time.Time) error {
	query := `insert into sync_state (key, value) values (?, ?)
		on conflict(key) do update set value = excluded.value`
	_, err := r.db.ExecContext(ctx, query, remoteSyncCursorKey, strconv.FormatInt(t.UnixNano(), 10))
	if err != nil {
		return fmt.Errorf("failed to set sync cursor: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) StageLocalItems(ctx context.Context, items []models.LocalMediaItem) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `insert into camera_roll (ref, name, taken_at, width, height, size_bytes, format, item_type)
			values (?, ?, ?, ?, ?, ?, ?, ?)
			on conflict(ref) do nothing`
		for _, item := range items {
			_, err := tx.ExecContext(ctx, query, item.Ref, item.Name, item.TakenAt.UnixNano(),
				item.Width, item.Height, item.SizeBytes, item.Format, item.ItemType)
			if err != nil {
				return fmt.Errorf("failed to stage %s: %w", item.Ref, err)
			}
		}
		return nil
	})
}

func stagedBounds(q string, from, to *time.Time) (string, []any) {
	args := []any{}
	if from != nil {
		q += ` and taken_at >= ?`
		args = append(args, from.UnixNano())
	}
	if to != nil {
		q += ` and taken_at <= ?`
		args = append(args, to.UnixNano())
	}
	return q, args
}

func (r *SQLiteRepository) ListPendingUploads(ctx context.Context, q PageQuery) ([]models.LocalMediaItem, error) {
	query, args := stagedBounds(`select ref, name, taken_at, width, height, size_bytes, format, item_type
		from camera_roll where 1=1`, q.From, q.To)
	query += ` order by taken_at desc limit ? offset ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged items: %w", err)
	}
	defer rows.Close()

	var result []models.LocalMediaItem
	for rows.Next() {
		var item models.LocalMediaItem
		var takenAt int64
		err := rows.Scan(&item.Ref, &item.Name, &takenAt, &item.Width, &item.Height,
			&item.SizeBytes, &item.Format, &item.ItemType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staged item: %w", err)
		}
		item.TakenAt = time.Unix(0, takenAt).UTC()
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) CountPendingUploads(ctx context.Context, from, to *time.Time) (int64, error) {
	query, args := stagedBounds(`select count(*) from camera_roll where 1=1`, from, to)
	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count staged items: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) ClearStaged(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from camera_roll`); err != nil {
		return fmt.Errorf("failed to clear staging table: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ResetAll(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"media", "camera_roll", "sync_state"} {
			if _, err := tx.ExecContext(ctx, `delete from `+table); err != nil {
				return fmt.Errorf("failed to reset %s: %w", table, err)
			}
		}
		return nil
	})
}
