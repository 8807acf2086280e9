package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/dbx"
)

type SQLiteLedger struct {
	db *sql.DB
}

func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

func (l *SQLiteLedger) IsUploaded(ctx context.Context, id string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE id = ? AND state IN (?, ?)`,
		id, StateUploaded, StateUploading).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying asset %s: %w", id, err)
	}
	return n > 0, nil
}

func (l *SQLiteLedger) State(ctx context.Context, id string) (State, error) {
	var state State
	err := l.db.QueryRowContext(ctx, `SELECT state FROM assets WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying asset state %s: %w", id, err)
	}
	return state, nil
}

func (l *SQLiteLedger) MarkUploading(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO assets (id, state) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state
		WHERE assets.state != ?
	`, id, StateUploading, StateUploaded)
	if err != nil {
		return fmt.Errorf("marking %s uploading: %w", id, err)
	}
	return nil
}

func (l *SQLiteLedger) RemoveFromUploading(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE assets SET state = ? WHERE id = ? AND state = ?`,
		StateIdle, id, StateUploading)
	if err != nil {
		return fmt.Errorf("removing %s from uploading: %w", id, err)
	}
	return nil
}

func (l *SQLiteLedger) MarkUploaded(ctx context.Context, id string, checksum string) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assets (id, state, checksum) VALUES (?, ?, NULLIF(?, ''))
			ON CONFLICT(id) DO UPDATE SET state = excluded.state,
				checksum = COALESCE(excluded.checksum, assets.checksum)
		`, id, StateUploaded, checksum)
		if err != nil {
			return fmt.Errorf("marking %s uploaded: %w", id, err)
		}
		if checksum == "" {
			return nil
		}
		return upsertChecksum(ctx, tx, checksum, id)
	})
}

func (l *SQLiteLedger) StoreChecksum(ctx context.Context, checksum string, id string) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE assets SET checksum = ? WHERE id = ?`, checksum, id); err != nil {
			return fmt.Errorf("storing checksum for %s: %w", id, err)
		}
		return upsertChecksum(ctx, tx, checksum, id)
	})
}

func (l *SQLiteLedger) Reconcile(ctx context.Context, serverChecksums []string) (int, error) {
	total := 0
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, checksum := range serverChecksums {
			// Upsert: the mapping may predate any assets row (the checksum
			// was stored but the asset never reached the ledger), and the
			// asset must still end up Uploaded.
			res, err := tx.ExecContext(ctx, `
				INSERT INTO assets (id, state, checksum)
				SELECT asset_id, ?, checksum FROM checksums WHERE checksum = ?
				ON CONFLICT(id) DO UPDATE SET state = excluded.state
				WHERE assets.state != excluded.state
			`, StateUploaded, checksum)
			if err != nil {
				return fmt.Errorf("reconciling checksum %s: %w", checksum, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (l *SQLiteLedger) CleanupStaleUploading(ctx context.Context, active map[string]struct{}) (int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id FROM assets WHERE state = ?`, StateUploading)
	if err != nil {
		return 0, fmt.Errorf("listing uploading assets: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if _, ok := active[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	err = dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx,
				`UPDATE assets SET state = ? WHERE id = ? AND state = ?`,
				StateIdle, id, StateUploading); err != nil {
				return fmt.Errorf("demoting stale upload %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (l *SQLiteLedger) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM checksums`); err != nil {
			return fmt.Errorf("clearing checksums: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assets`); err != nil {
			return fmt.Errorf("clearing assets: %w", err)
		}
		return nil
	})
}

func upsertChecksum(ctx context.Context, tx dbx.DBTX, checksum, id string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO checksums (checksum, asset_id) VALUES (?, ?)
		ON CONFLICT(checksum) DO UPDATE SET asset_id = excluded.asset_id
	`, checksum, id)
	if err != nil {
		return fmt.Errorf("upserting checksum mapping: %w", err)
	}
	return nil
}
