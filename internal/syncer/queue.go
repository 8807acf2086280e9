package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/library"
	"github.com/oglimmer/picz2/internal/logging"
)

// uploadFunc performs one complete transfer attempt for an asset.
type uploadFunc func(ctx context.Context, asset library.Asset) error

// checkUploaded reports whether an asset is already uploaded (or in flight
// in a previous session's journal) and must not be enqueued again.
type checkUploaded func(ctx context.Context, assetID string) (bool, error)

// Scheduler owns the in-memory backlog and the bounded set of dispatched
// transfers. Items move pending -> dispatched -> gone on success, or back to
// pending after a backoff delay on a retryable failure. The backlog drains
// itself: every completion frees a slot and pulls the next pending item.
type Scheduler struct {
	maxInFlight int
	newBackoff  func() retry.Backoff
	upload      uploadFunc
	isUploaded  checkUploaded
	log         logging.Logger
	onStats     func(queued, uploading int)

	mu         sync.Mutex
	pending    []library.Asset
	pendingIDs map[string]struct{}
	dispatched map[string]struct{}
	backoffs   map[string]retry.Backoff
	timers     map[string]*time.Timer
	inFlight   int
	wg         sync.WaitGroup
}

// NewScheduler builds a scheduler dispatching at most maxInFlight concurrent
// transfers. newBackoff produces a fresh per-asset retry policy; onStats is
// invoked with the backlog and in-flight sizes after every transition.
func NewScheduler(maxInFlight int, newBackoff func() retry.Backoff, upload uploadFunc,
	isUploaded checkUploaded, log logging.Logger, onStats func(queued, uploading int)) *Scheduler {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	if onStats == nil {
		onStats = func(int, int) {}
	}
	return &Scheduler{
		maxInFlight: maxInFlight,
		newBackoff:  newBackoff,
		upload:      upload,
		isUploaded:  isUploaded,
		log:         log.With("component", "scheduler"),
		onStats:     onStats,
		pendingIDs:  make(map[string]struct{}),
		dispatched:  make(map[string]struct{}),
		backoffs:    make(map[string]retry.Backoff),
		timers:      make(map[string]*time.Timer),
	}
}

// Enqueue appends assets to the backlog and starts dispatching. Assets that
// are already pending, already dispatched, or already uploaded per the
// ledger are skipped. Returns the number of assets actually added.
func (s *Scheduler) Enqueue(ctx context.Context, assets []library.Asset) int {
	added := 0
	s.mu.Lock()
	for _, a := range assets {
		if _, ok := s.pendingIDs[a.ID]; ok {
			continue
		}
		if _, ok := s.dispatched[a.ID]; ok {
			continue
		}
		uploaded, err := s.isUploaded(ctx, a.ID)
		if err != nil {
			s.log.Warn(ctx, "enqueue state check failed", "asset", a.ID, "error", err)
			continue
		}
		if uploaded {
			continue
		}
		s.pending = append(s.pending, a)
		s.pendingIDs[a.ID] = struct{}{}
		added++
	}
	s.mu.Unlock()

	if added > 0 {
		s.log.Debug(ctx, "assets enqueued", "added", added)
	}
	s.dispatch(ctx)
	return added
}

// dispatch fills free transfer slots from the head of the backlog. The
// transfer itself runs with cancellation stripped from ctx: an expired
// scheduling window stops new dispatches but never aborts a transfer that
// already started.
func (s *Scheduler) dispatch(ctx context.Context) {
	s.mu.Lock()
	for s.inFlight < s.maxInFlight && len(s.pending) > 0 && ctx.Err() == nil {
		asset := s.pending[0]
		s.pending = s.pending[1:]
		delete(s.pendingIDs, asset.ID)
		s.dispatched[asset.ID] = struct{}{}
		s.inFlight++
		s.wg.Add(1)
		go s.run(ctx, asset)
	}
	queued, uploading := len(s.pending), s.inFlight
	s.mu.Unlock()

	s.onStats(queued, uploading)
}

func (s *Scheduler) run(ctx context.Context, asset library.Asset) {
	defer s.wg.Done()

	err := s.upload(context.WithoutCancel(ctx), asset)

	s.mu.Lock()
	delete(s.dispatched, asset.ID)
	s.inFlight--
	switch {
	case err == nil:
		delete(s.backoffs, asset.ID)
	case !retryable(err) || ctx.Err() != nil:
		delete(s.backoffs, asset.ID)
		s.log.Warn(ctx, "asset dropped from queue", "asset", asset.ID, "error", err)
	default:
		s.scheduleRetryLocked(ctx, asset, err)
	}
	s.mu.Unlock()

	s.dispatch(ctx)
}

// scheduleRetryLocked re-enqueues asset after its backoff delay. Caller holds
// s.mu.
func (s *Scheduler) scheduleRetryLocked(ctx context.Context, asset library.Asset, cause error) {
	b, ok := s.backoffs[asset.ID]
	if !ok {
		b = s.newBackoff()
		s.backoffs[asset.ID] = b
	}
	delay, stop := b.Next()
	if stop {
		delete(s.backoffs, asset.ID)
		s.log.Warn(ctx, "retry budget exhausted", "asset", asset.ID, "error", cause)
		return
	}

	s.log.Info(ctx, "retry scheduled", "asset", asset.ID, "delay", delay, "error", cause)
	s.timers[asset.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, asset.ID)
		if _, dup := s.pendingIDs[asset.ID]; !dup && ctx.Err() == nil {
			s.pending = append(s.pending, asset)
			s.pendingIDs[asset.ID] = struct{}{}
		}
		s.mu.Unlock()
		s.dispatch(ctx)
	})
}

// retryable reports whether a failed transfer should re-enter the backlog.
// Missing source data and rejected credentials will not heal on their own;
// everything else is treated as transient.
func retryable(err error) bool {
	switch {
	case errors.Is(err, common.ErrNoResource),
		errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Clear drops the backlog and all scheduled retries. Transfers already
// dispatched keep running; they are durable and report their own completion.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.pending = nil
	s.pendingIDs = make(map[string]struct{})
	s.backoffs = make(map[string]retry.Backoff)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	queued, uploading := 0, s.inFlight
	s.mu.Unlock()

	s.onStats(queued, uploading)
}

// Wait blocks until all dispatched transfers have completed. Retry timers
// are not waited on; callers drain those by polling stats.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stats returns the current backlog and in-flight sizes.
func (s *Scheduler) Stats() (queued, uploading int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), s.inFlight
}
