package syncer

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of the engine's published counters.
// Counters are rebuilt each session; only LastSync is also persisted (it
// seeds the next incremental scan).
type Metrics struct {
	// Queued is the number of assets waiting in the backlog.
	Queued int
	// Uploading is the number of transfers currently dispatched.
	Uploading int
	// Uploaded counts successful uploads this session.
	Uploaded int
	// InScope is the total number of assets inside the sync window.
	InScope int
	// LastSync is the time the most recent item resolved.
	LastSync time.Time
}

// metricsState is the mutable counter set behind Metrics snapshots. Executor
// callbacks run on their own goroutines, so all access is mutex-guarded.
type metricsState struct {
	mu sync.Mutex
	m  Metrics
}

func (s *metricsState) snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

func (s *metricsState) setQueue(queued, uploading int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Queued = queued
	s.m.Uploading = uploading
}

func (s *metricsState) setInScope(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.InScope = n
}

func (s *metricsState) incUploaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Uploaded++
}

func (s *metricsState) setLastSync(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.LastSync = t
}

func (s *metricsState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = Metrics{}
}
