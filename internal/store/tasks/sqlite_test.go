package tasks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE transfer_tasks (
  id TEXT PRIMARY KEY,
  asset_id TEXT NOT NULL,
  checksum TEXT NOT NULL,
  export_path TEXT NOT NULL,
  body_path TEXT NOT NULL,
  boundary TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func sampleTask(id, assetID string, at time.Time) *Task {
	return &Task{
		ID:         id,
		AssetID:    assetID,
		Checksum:   "c-" + assetID,
		ExportPath: "/spool/" + id + ".jpg",
		BodyPath:   "/spool/" + id + ".multipart",
		Boundary:   "b" + id,
		CreatedAt:  at,
	}
}

func TestTasks_AddListRemove(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, r.Add(ctx, sampleTask("t2", "a2", now.Add(time.Second))))
	require.NoError(t, r.Add(ctx, sampleTask("t1", "a1", now)))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID, "oldest first")
	assert.Equal(t, "a1", list[0].AssetID)
	assert.Equal(t, "c-a1", list[0].Checksum)

	require.NoError(t, r.Remove(ctx, "t1"))
	require.NoError(t, r.Remove(ctx, "t1")) // unknown id is a no-op

	list, err = r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t2", list[0].ID)
}

func TestTasks_ActiveAssetIDs(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Add(ctx, sampleTask("t1", "a1", now)))
	require.NoError(t, r.Add(ctx, sampleTask("t2", "a2", now)))

	active, err := r.ActiveAssetIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a1": {}, "a2": {}}, active)

	require.NoError(t, r.Clear(ctx))
	active, err = r.ActiveAssetIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
