// Package store opens the engine's local sqlite database, applies embedded
// migrations and bundles the repositories built on top of it.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"

	"github.com/oglimmer/picz2/internal/store/ledger"
	"github.com/oglimmer/picz2/internal/store/metadata"
	"github.com/oglimmer/picz2/internal/store/migrations"
	"github.com/oglimmer/picz2/internal/store/synclog"
	"github.com/oglimmer/picz2/internal/store/tasks"
)

// Store bundles the sqlite-backed repositories sharing one database.
type Store struct {
	db *sql.DB

	Ledger   ledger.Ledger
	Tasks    tasks.Repository
	SyncLog  synclog.Repository
	Metadata metadata.Repository
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the sqlite database at dsn, migrates it
// and returns the repository bundle.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// modernc sqlite serializes writes itself, but concurrent writers still
	// need a single connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{
		db:       db,
		Ledger:   ledger.NewSQLiteLedger(db),
		Tasks:    tasks.NewSQLiteRepository(db),
		SyncLog:  synclog.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
