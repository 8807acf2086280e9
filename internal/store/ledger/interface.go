// Package ledger is the persistent record of per-asset upload state and of
// the checksum→asset mapping used for cross-device reconciliation.
package ledger

import "context"

// State is the upload state of one asset.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateUploaded  State = "uploaded"
)

// Ledger records upload state transitions. All mutations persist before the
// call returns, so a crash mid-upload leaves the ledger consistent with
// "not yet uploaded". Implementations must be safe for concurrent callers.
type Ledger interface {
	// IsUploaded returns true if the asset is Uploaded OR currently
	// Uploading. The in-flight case counts so an asset is never enqueued a
	// second time while a transfer is running.
	IsUploaded(ctx context.Context, id string) (bool, error)

	// State returns the asset's state, or common.ErrNotFound for an asset
	// the ledger has never seen.
	State(ctx context.Context, id string) (State, error)

	// MarkUploading transitions the asset to Uploading. Idempotent; never
	// demotes an Uploaded asset.
	MarkUploading(ctx context.Context, id string) error

	// RemoveFromUploading returns an Uploading asset to Idle so a later
	// scan retries it. Idempotent; a no-op for any other state.
	RemoveFromUploading(ctx context.Context, id string) error

	// MarkUploaded transitions to Uploaded and, when checksum is non-empty,
	// records the checksum→id mapping for reconciliation.
	MarkUploaded(ctx context.Context, id string, checksum string) error

	// StoreChecksum records the checksum→id mapping as soon as it is known
	// (right after export), before the transfer outcome.
	StoreChecksum(ctx context.Context, checksum string, id string) error

	// Reconcile forces every asset whose checksum appears in serverChecksums
	// to Uploaded. Checksums with no local mapping are ignored. Returns the
	// number of assets transitioned.
	Reconcile(ctx context.Context, serverChecksums []string) (int, error)

	// CleanupStaleUploading demotes Uploading assets with no provably
	// still-running transfer (id not in active) back to Idle. Returns the
	// number demoted.
	CleanupStaleUploading(ctx context.Context, active map[string]struct{}) (int, error)

	// Clear wipes all ledger state. Used on logout / cache reset.
	Clear(ctx context.Context) error
}
