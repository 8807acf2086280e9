package tasks

import (
	"context"
	"fmt"

	"github.com/oglimmer/picz2/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, task *Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transfer_tasks (id, asset_id, checksum, export_path, body_path, boundary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.AssetID, task.Checksum, task.ExportPath, task.BodyPath, task.Boundary, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("journalling transfer %s: %w", task.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transfer_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing transfer %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, asset_id, checksum, export_path, body_path, boundary, created_at
		FROM transfer_tasks ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var result []*Task
	for rows.Next() {
		task := &Task{}
		if err := rows.Scan(&task.ID, &task.AssetID, &task.Checksum,
			&task.ExportPath, &task.BodyPath, &task.Boundary, &task.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) ActiveAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT asset_id FROM transfer_tasks`)
	if err != nil {
		return nil, fmt.Errorf("listing active transfers: %w", err)
	}
	defer rows.Close()

	active := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return active, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transfer_tasks`); err != nil {
		return fmt.Errorf("clearing transfers: %w", err)
	}
	return nil
}
