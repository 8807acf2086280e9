package synclog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oglimmer/picz2/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, trigger Trigger, success bool, message string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_log (ts, trigger_type, success, message)
			VALUES (?, ?, ?, ?)
		`, time.Now().UTC(), trigger, success, message)
		if err != nil {
			return fmt.Errorf("appending sync log: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM sync_log
			WHERE id NOT IN (SELECT id FROM sync_log ORDER BY id DESC LIMIT ?)
		`, MaxEntries)
		if err != nil {
			return fmt.Errorf("trimming sync log: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ts, trigger_type, success, message
		FROM sync_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("reading sync log: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Trigger, &e.Success, &e.Message); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_log`); err != nil {
		return fmt.Errorf("clearing sync log: %w", err)
	}
	return nil
}
