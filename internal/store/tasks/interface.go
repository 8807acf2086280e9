// Package tasks journals in-flight transfers so they survive a process
// restart: a task is recorded before its HTTP POST starts and removed when
// the transfer resolves. On startup the journal is replayed (the staged
// bodies are resubmitted) and the journalled asset IDs count as "active"
// when the ledger demotes stale Uploading entries.
package tasks

import (
	"context"
	"time"
)

// Task is one durable transfer: the staged multipart body on disk plus the
// bookkeeping needed to resolve it.
type Task struct {
	// ID is a stable identifier for the transfer, independent of the asset.
	ID string

	AssetID  string
	Checksum string

	// ExportPath is the spooled asset bytes; BodyPath the staged multipart
	// body actually sent. Both are deleted when the task resolves.
	ExportPath string
	BodyPath   string

	// Boundary is the multipart boundary baked into the staged body.
	Boundary string

	CreatedAt time.Time
}

type Repository interface {
	// Add journals a transfer before it is submitted.
	Add(ctx context.Context, task *Task) error

	// Remove drops a resolved transfer. Removing an unknown ID is a no-op.
	Remove(ctx context.Context, id string) error

	// List returns all journalled transfers, oldest first.
	List(ctx context.Context) ([]*Task, error)

	// ActiveAssetIDs returns the asset IDs with a journalled transfer.
	ActiveAssetIDs(ctx context.Context) (map[string]struct{}, error)

	// Clear drops the whole journal.
	Clear(ctx context.Context) error
}
