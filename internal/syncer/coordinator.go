// Package syncer is the sync engine proper: the coordinator drives the
// scan/filter/enqueue pipeline, the scheduler bounds concurrent transfers,
// and the uploader executes each transfer durably.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/oglimmer/picz2/internal/api"
	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/config"
	"github.com/oglimmer/picz2/internal/export"
	"github.com/oglimmer/picz2/internal/library"
	"github.com/oglimmer/picz2/internal/logging"
	"github.com/oglimmer/picz2/internal/store"
	"github.com/oglimmer/picz2/internal/store/synclog"
)

// Metadata keys for engine state that outlives the process.
const (
	keyLastSync  = "settings.lastSyncDate"
	keyAlbumID   = "settings.albumId"
	keyAlbumName = "settings.selectedAlbumName"
)

// Settings is the engine's published preference surface.
type Settings struct {
	WifiOnly     bool
	SyncLastDays int

	// AlbumID and AlbumName mirror the server-side target album, cached
	// locally. AlbumID is nil when no album is selected.
	AlbumID   *int64
	AlbumName string
}

// Coordinator owns the sync pipeline. All sync entry points funnel through
// runSync; pipeline runs are serialized so two triggers never scan
// concurrently, while transfers from an earlier run keep draining.
type Coordinator struct {
	cfg     *config.Config
	api     *api.Client
	lib     library.Library
	store   *store.Store
	sched   *Scheduler
	up      *Uploader
	log     logging.Logger
	metrics *metricsState

	runMu chMutex
}

// chMutex is a channel-based mutex so pipeline serialization can respect
// context cancellation.
type chMutex chan struct{}

func (m chMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chMutex) unlock() { <-m }

// NewCoordinator wires the engine: the uploader's completion hooks feed the
// metrics and the persisted last-sync timestamp, and the scheduler's stats
// hook feeds the queue gauges. backoff may be nil for the default flat
// RetryDelay policy.
func NewCoordinator(cfg *config.Config, client *api.Client, lib library.Library,
	st *store.Store, exporter *export.Exporter, backoff func() retry.Backoff,
	log logging.Logger) *Coordinator {

	c := &Coordinator{
		cfg:     cfg,
		api:     client,
		lib:     lib,
		store:   st,
		log:     log.With("component", "coordinator"),
		metrics: &metricsState{},
		runMu:   make(chMutex, 1),
	}

	if backoff == nil {
		backoff = func() retry.Backoff { return retry.NewConstant(cfg.RetryDelay) }
	}

	c.up = NewUploader(client, exporter, st.Ledger, st.Tasks, st.SyncLog, log)
	c.up.onUploaded = func(string) { c.metrics.incUploaded() }
	c.up.onResolved = func(string, error) { c.noteItemResolved() }

	c.sched = NewScheduler(cfg.BatchSize, backoff, c.up.Upload,
		st.Ledger.IsUploaded, log, c.metrics.setQueue)

	return c
}

// noteItemResolved stamps the last-sync time, in memory and persistently,
// after every transfer attempt. The persisted value seeds the next
// incremental scan, so it must move even on failure or the same window would
// be rescanned forever.
func (c *Coordinator) noteItemResolved() {
	now := time.Now()
	c.metrics.setLastSync(now)
	if err := c.store.Metadata.Set(context.Background(), keyLastSync,
		[]byte(now.Format(time.RFC3339Nano))); err != nil {
		c.log.Warn(context.Background(), "persisting last sync time failed", "error", err)
	}
}

// Start brings the engine up after a process start: replay journalled
// transfers from the previous run, demote any Uploading entries the journal
// no longer vouches for, then run a full initial sync.
func (c *Coordinator) Start(ctx context.Context) error {
	replayed, err := c.up.Replay(ctx)
	if err != nil {
		return err
	}
	if replayed > 0 {
		c.log.Info(ctx, "journalled transfers replayed", "count", replayed)
	}

	active, err := c.store.Tasks.ActiveAssetIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing active transfers: %w", err)
	}
	demoted, err := c.store.Ledger.CleanupStaleUploading(ctx, active)
	if err != nil {
		return fmt.Errorf("cleaning stale uploads: %w", err)
	}
	if demoted > 0 {
		c.log.Info(ctx, "stale uploading entries demoted", "count", demoted)
	}

	return c.runLocked(ctx, synclog.TriggerStartup, true)
}

// PerformManualSync runs a user-initiated sync. It returns once the scan has
// completed and the backlog is enqueued; transfers drain in the background.
func (c *Coordinator) PerformManualSync(ctx context.Context) error {
	if err := c.store.SyncLog.Append(ctx, synclog.TriggerManual, true, "Started"); err != nil {
		c.log.Warn(ctx, "sync log append failed", "error", err)
	}

	err := c.runLocked(ctx, synclog.TriggerManual, false)
	if err == nil {
		_ = c.store.SyncLog.Append(ctx, synclog.TriggerManual, true, "Completed")
	}
	return err
}

// PerformBackgroundSync runs one time-boxed background sync. When the box
// expires, scheduling stops; dispatched transfers are durable and finish on
// their own.
func (c *Coordinator) PerformBackgroundSync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.BackgroundTimeBox)
	defer cancel()

	if err := c.store.SyncLog.Append(ctx, synclog.TriggerBackground, true, "Started"); err != nil {
		c.log.Warn(ctx, "sync log append failed", "error", err)
	}

	err := c.runLocked(ctx, synclog.TriggerBackground, false)
	if err == nil {
		_ = c.store.SyncLog.Append(ctx, synclog.TriggerBackground, true, "Completed")
	}
	return err
}

// HandleLibraryChanged reacts to a library change signal with an incremental
// scan. No server round-trips: the cached target album gates the scan, and
// reconciliation waits for the next full run.
func (c *Coordinator) HandleLibraryChanged(ctx context.Context) {
	id, _, err := c.cachedAlbum(ctx)
	if err != nil || id == nil {
		return
	}
	if err := c.runMu.lock(ctx); err != nil {
		return
	}
	defer c.runMu.unlock()

	if err := c.scanAndEnqueue(ctx, false); err != nil {
		c.log.Warn(ctx, "incremental scan failed", "error", err)
	}
}

func (c *Coordinator) runLocked(ctx context.Context, trigger synclog.Trigger, initial bool) error {
	if err := c.runMu.lock(ctx); err != nil {
		return err
	}
	defer c.runMu.unlock()
	return c.runSync(ctx, trigger, initial)
}

// runSync is the pipeline every trigger funnels through: target-album sync,
// permission check, reconcile, scan, filter, enqueue.
func (c *Coordinator) runSync(ctx context.Context, trigger synclog.Trigger, initial bool) error {
	if err := c.syncTargetAlbum(ctx, trigger); err != nil {
		return err
	}

	if err := c.lib.Authorized(ctx); err != nil {
		_ = c.store.SyncLog.Append(ctx, trigger, false, "Photo access denied")
		return fmt.Errorf("%w: %v", common.ErrPermissionDenied, err)
	}

	c.reconcile(ctx)

	return c.scanAndEnqueue(ctx, initial)
}

// syncTargetAlbum pulls the server's target album and mirrors it locally;
// the server always wins. A nil server-side album aborts the run with
// common.ErrNoTargetAlbum and clears the backlog. When the server is
// unreachable the cached selection carries the run.
func (c *Coordinator) syncTargetAlbum(ctx context.Context, trigger synclog.Trigger) error {
	cachedID, _, err := c.cachedAlbum(ctx)
	if err != nil {
		return err
	}

	id, err := c.api.TargetAlbum(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			_ = c.store.SyncLog.Append(ctx, trigger, false, "Not authenticated")
			return err
		}
		if cachedID != nil {
			c.log.Warn(ctx, "target album fetch failed, using cached selection", "error", err)
			return nil
		}
		_ = c.store.SyncLog.Append(ctx, trigger, false, "No album selected")
		return fmt.Errorf("%w: %v", common.ErrNoTargetAlbum, err)
	}

	if id == nil {
		if err := c.clearCachedAlbum(ctx); err != nil {
			c.log.Warn(ctx, "clearing cached album failed", "error", err)
		}
		c.ClearQueue()
		_ = c.store.SyncLog.Append(ctx, trigger, false, "No album selected")
		return common.ErrNoTargetAlbum
	}

	if cachedID != nil && *cachedID == *id {
		return nil
	}

	name := ""
	albums, aerr := c.api.Albums(ctx)
	if aerr != nil {
		c.log.Warn(ctx, "album list fetch failed", "error", aerr)
	} else {
		for _, a := range albums {
			if a.ID == *id {
				name = a.Name
				break
			}
		}
	}

	if err := c.store.Metadata.Set(ctx, keyAlbumID, []byte(strconv.FormatInt(*id, 10))); err != nil {
		return fmt.Errorf("caching album id: %w", err)
	}
	if err := c.store.Metadata.Set(ctx, keyAlbumName, []byte(name)); err != nil {
		return fmt.Errorf("caching album name: %w", err)
	}
	c.log.Info(ctx, "target album updated", "album", *id, "name", name)
	return nil
}

// reconcile pulls the checksums the server already holds and marks the
// matching local assets Uploaded. Failures never block the run; at worst an
// already-uploaded asset is re-sent and the server dedups it by checksum.
func (c *Coordinator) reconcile(ctx context.Context) {
	sums, err := c.api.UploadedChecksums(ctx, c.cfg.SyncLastDays+1)
	if err != nil {
		c.log.Warn(ctx, "reconcile fetch failed", "error", err)
		return
	}
	n, err := c.store.Ledger.Reconcile(ctx, sums)
	if err != nil {
		c.log.Warn(ctx, "reconcile apply failed", "error", err)
		return
	}
	c.log.Info(ctx, "reconciled with server", "checksums", len(sums), "marked", n)
}

// scanAndEnqueue lists the in-scope assets, filters out those the ledger
// already accounts for and hands the remainder to the scheduler. An initial
// scan covers the whole window; an incremental one only assets newer than
// the persisted last-sync time.
func (c *Coordinator) scanAndEnqueue(ctx context.Context, initial bool) error {
	cutoff := time.Now().AddDate(0, 0, -c.cfg.SyncLastDays)

	assets, err := c.lib.Assets(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("scanning library: %w", err)
	}
	c.metrics.setInScope(len(assets))

	since := cutoff
	if !initial {
		if ls := c.lastSync(ctx); ls.After(cutoff) {
			since = ls
		}
	}

	candidates := make([]library.Asset, 0, len(assets))
	for _, a := range assets {
		if !initial && !a.CreatedAt.After(since) {
			continue
		}
		candidates = append(candidates, a)
	}

	added := c.sched.Enqueue(ctx, candidates)
	c.log.Info(ctx, "scan complete",
		"inScope", len(assets), "candidates", len(candidates), "enqueued", added)
	return nil
}

func (c *Coordinator) lastSync(ctx context.Context) time.Time {
	raw, err := c.store.Metadata.Get(ctx, keyLastSync)
	if err != nil || raw == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Coordinator) cachedAlbum(ctx context.Context) (*int64, string, error) {
	raw, err := c.store.Metadata.Get(ctx, keyAlbumID)
	if err != nil {
		return nil, "", err
	}
	if raw == nil {
		return nil, "", nil
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("corrupt cached album id %q: %w", raw, err)
	}
	name, err := c.store.Metadata.Get(ctx, keyAlbumName)
	if err != nil {
		return nil, "", err
	}
	return &id, string(name), nil
}

func (c *Coordinator) clearCachedAlbum(ctx context.Context) error {
	if err := c.store.Metadata.Delete(ctx, keyAlbumID); err != nil {
		return err
	}
	return c.store.Metadata.Delete(ctx, keyAlbumName)
}

// ClearQueue drops the pending backlog. Dispatched transfers keep running.
func (c *Coordinator) ClearQueue() {
	c.sched.Clear()
}

// Reset wipes all local engine state: backlog, ledger, journal (and its
// staged files), sync log, cached settings and session counters. Used on
// logout.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.runMu.lock(ctx); err != nil {
		return err
	}
	defer c.runMu.unlock()

	c.sched.Clear()

	pending, err := c.store.Tasks.List(ctx)
	if err != nil {
		return fmt.Errorf("listing journal: %w", err)
	}
	for _, t := range pending {
		_ = os.Remove(t.ExportPath)
		_ = os.Remove(t.BodyPath)
	}

	for _, clear := range []func(context.Context) error{
		c.store.Tasks.Clear,
		c.store.Ledger.Clear,
		c.store.SyncLog.Clear,
		c.store.Metadata.Clear,
	} {
		if err := clear(ctx); err != nil {
			return err
		}
	}

	c.metrics.reset()
	c.log.Info(ctx, "local state reset")
	return nil
}

// Metrics returns a snapshot of the session counters.
func (c *Coordinator) Metrics() Metrics {
	return c.metrics.snapshot()
}

// Settings returns the published preference surface, merging config with the
// cached target album.
func (c *Coordinator) Settings(ctx context.Context) (Settings, error) {
	id, name, err := c.cachedAlbum(ctx)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		WifiOnly:     c.cfg.WifiOnly,
		SyncLastDays: c.cfg.SyncLastDays,
		AlbumID:      id,
		AlbumName:    name,
	}, nil
}

// Wait blocks until all dispatched transfers have completed.
func (c *Coordinator) Wait() {
	c.sched.Wait()
}
