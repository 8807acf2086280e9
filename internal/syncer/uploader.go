package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/oglimmer/picz2/internal/api"
	"github.com/oglimmer/picz2/internal/export"
	"github.com/oglimmer/picz2/internal/library"
	"github.com/oglimmer/picz2/internal/logging"
	"github.com/oglimmer/picz2/internal/store/ledger"
	"github.com/oglimmer/picz2/internal/store/synclog"
	"github.com/oglimmer/picz2/internal/store/tasks"
)

// Uploader executes one transfer end to end: mark the asset Uploading,
// export it, stage the multipart body, journal the task, submit it, then
// clean up and record the outcome. Crashing anywhere after the journal write
// leaves a replayable task; crashing before it leaves a stale Uploading
// entry that CleanupStaleUploading demotes on the next start.
type Uploader struct {
	api      *api.Client
	exporter *export.Exporter
	ledger   ledger.Ledger
	journal  tasks.Repository
	logbook  synclog.Repository
	log      logging.Logger

	// onResolved fires after every attempt, success or not; onUploaded only
	// after a success. Both may be nil.
	onResolved func(assetID string, err error)
	onUploaded func(assetID string)
}

func NewUploader(client *api.Client, exporter *export.Exporter, led ledger.Ledger,
	journal tasks.Repository, logbook synclog.Repository, log logging.Logger) *Uploader {
	return &Uploader{
		api:      client,
		exporter: exporter,
		ledger:   led,
		journal:  journal,
		logbook:  logbook,
		log:      log.With("component", "uploader"),
	}
}

// Upload runs the full pipeline for one asset. MarkUploading persists before
// the export starts, so a second scan during the export cannot enqueue the
// asset again.
func (u *Uploader) Upload(ctx context.Context, asset library.Asset) error {
	if err := u.ledger.MarkUploading(ctx, asset.ID); err != nil {
		return fmt.Errorf("marking %s uploading: %w", asset.ID, err)
	}

	res, err := u.exporter.Export(ctx, asset)
	if err != nil {
		u.log.Warn(ctx, "export failed", "asset", asset.ID, "error", err)
		u.fail(ctx, asset.ID, fmt.Sprintf("Failed to export %s", asset.Filename))
		return fmt.Errorf("exporting %s: %w", asset.ID, err)
	}

	// The checksum is durable before the transfer outcome is known, so a
	// later reconcile can resolve this asset even if this attempt dies.
	if err := u.ledger.StoreChecksum(ctx, res.Checksum, asset.ID); err != nil {
		u.log.Warn(ctx, "storing checksum failed", "asset", asset.ID, "error", err)
	}

	task := &tasks.Task{
		ID:         uuid.NewString(),
		AssetID:    asset.ID,
		Checksum:   res.Checksum,
		ExportPath: res.Path,
		CreatedAt:  time.Now(),
	}
	task.BodyPath = filepath.Join(u.exporter.SpoolDir(), task.ID+".multipart")

	task.Boundary, err = api.StageUploadBody(task.BodyPath, res.Path, res.Filename, res.MIMEType, asset.ID)
	if err != nil {
		_ = os.Remove(res.Path)
		u.fail(ctx, asset.ID, fmt.Sprintf("Failed to stage %s", asset.Filename))
		return fmt.Errorf("staging %s: %w", asset.ID, err)
	}

	if err := u.journal.Add(ctx, task); err != nil {
		_ = os.Remove(res.Path)
		_ = os.Remove(task.BodyPath)
		u.fail(ctx, asset.ID, fmt.Sprintf("Failed to journal %s", asset.Filename))
		return fmt.Errorf("journalling %s: %w", asset.ID, err)
	}

	return u.finish(ctx, task)
}

// finish submits a journalled task and resolves it: temp files and the
// journal row go away regardless of outcome, then the ledger and sync log
// record what happened. Also the replay path for tasks left over from a
// previous run.
func (u *Uploader) finish(ctx context.Context, task *tasks.Task) error {
	err := u.api.UploadStaged(ctx, task.BodyPath, task.Boundary)

	_ = os.Remove(task.ExportPath)
	_ = os.Remove(task.BodyPath)
	if rerr := u.journal.Remove(ctx, task.ID); rerr != nil {
		u.log.Warn(ctx, "removing journal entry failed", "task", task.ID, "error", rerr)
	}

	if err != nil {
		u.log.Warn(ctx, "upload failed", "asset", task.AssetID, "error", err)
		u.fail(ctx, task.AssetID, fmt.Sprintf("Failed to upload %s: %v", task.AssetID, err))
		return fmt.Errorf("uploading %s: %w", task.AssetID, err)
	}

	if merr := u.ledger.MarkUploaded(ctx, task.AssetID, task.Checksum); merr != nil {
		u.log.Error(ctx, "marking uploaded failed", "asset", task.AssetID, "error", merr)
	}
	if lerr := u.logbook.Append(ctx, synclog.TriggerUpload, true,
		fmt.Sprintf("Uploaded %s", task.AssetID)); lerr != nil {
		u.log.Warn(ctx, "sync log append failed", "error", lerr)
	}
	u.log.Info(ctx, "asset uploaded", "asset", task.AssetID)

	if u.onUploaded != nil {
		u.onUploaded(task.AssetID)
	}
	if u.onResolved != nil {
		u.onResolved(task.AssetID, nil)
	}
	return nil
}

// fail returns the asset to Idle and records the failure.
func (u *Uploader) fail(ctx context.Context, assetID, message string) {
	if err := u.ledger.RemoveFromUploading(ctx, assetID); err != nil {
		u.log.Error(ctx, "returning asset to idle failed", "asset", assetID, "error", err)
	}
	if err := u.logbook.Append(ctx, synclog.TriggerUpload, false, message); err != nil {
		u.log.Warn(ctx, "sync log append failed", "error", err)
	}
	if u.onResolved != nil {
		u.onResolved(assetID, fmt.Errorf("%s", message))
	}
}

// Replay resubmits every journalled transfer from a previous run, oldest
// first. A task whose staged body is gone from disk cannot be replayed; it
// is dropped and its asset demoted so the next scan picks it up again.
func (u *Uploader) Replay(ctx context.Context) (int, error) {
	pending, err := u.journal.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing journal: %w", err)
	}

	replayed := 0
	for _, task := range pending {
		if _, serr := os.Stat(task.BodyPath); serr != nil {
			u.log.Warn(ctx, "journalled body missing, dropping task",
				"task", task.ID, "asset", task.AssetID)
			_ = os.Remove(task.ExportPath)
			_ = u.journal.Remove(ctx, task.ID)
			_ = u.ledger.RemoveFromUploading(ctx, task.AssetID)
			continue
		}
		if err := u.finish(ctx, task); err == nil {
			replayed++
		}
	}
	return replayed, nil
}
