package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oglimmer/picz2/internal/common"
	"github.com/oglimmer/picz2/internal/library"
	"github.com/oglimmer/picz2/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewZerologLogger(zerolog.Nop())
}

func neverUploaded(context.Context, string) (bool, error) { return false, nil }

func immediateBackoff() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewConstant(time.Millisecond))
}

func asset(id string) library.Asset {
	return library.Asset{ID: id, Filename: id + ".jpg", Kind: library.KindImage}
}

func TestScheduler_EnqueueIsIdempotent(t *testing.T) {
	var attempts atomic.Int32
	release := make(chan struct{})
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		attempts.Add(1)
		<-release
		return nil
	}, neverUploaded, testLogger(), nil)

	ctx := context.Background()
	assert.Equal(t, 1, s.Enqueue(ctx, []library.Asset{asset("a"), asset("a")}))

	// "a" is dispatched and blocked, "b" pending: neither may be re-added.
	assert.Equal(t, 1, s.Enqueue(ctx, []library.Asset{asset("b")}))
	assert.Equal(t, 0, s.Enqueue(ctx, []library.Asset{asset("a"), asset("b")}))

	close(release)
	s.Wait()
	assert.Equal(t, int32(2), attempts.Load())
}

func TestScheduler_SkipsUploadedAssets(t *testing.T) {
	uploaded := map[string]bool{"done": true}
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		return nil
	}, func(_ context.Context, id string) (bool, error) {
		return uploaded[id], nil
	}, testLogger(), nil)

	added := s.Enqueue(context.Background(), []library.Asset{asset("done"), asset("new")})
	assert.Equal(t, 1, added)
	s.Wait()
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	ready := make(chan struct{}, 6)
	release := make(chan struct{})
	s := NewScheduler(3, immediateBackoff, func(context.Context, library.Asset) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		ready <- struct{}{}
		<-release
		running.Add(-1)
		return nil
	}, neverUploaded, testLogger(), nil)

	assets := []library.Asset{
		asset("a"), asset("b"), asset("c"), asset("d"), asset("e"), asset("f"),
	}
	s.Enqueue(context.Background(), assets)

	// All three slots must be occupied inside the upload func before any
	// transfer is released, so the peak observation cannot race dispatch.
	for i := 0; i < 3; i++ {
		select {
		case <-ready:
		case <-time.After(time.Second):
			t.Fatal("transfer slots were not filled")
		}
	}

	close(release)
	s.Wait()
	assert.Equal(t, int32(3), peak.Load())
}

func TestScheduler_RetriesTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		if attempts.Add(1) == 1 {
			return assert.AnError
		}
		close(done)
		return nil
	}, neverUploaded, testLogger(), nil)

	s.Enqueue(context.Background(), []library.Asset{asset("flaky")})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("asset was not retried")
	}
	assert.Equal(t, int32(2), attempts.Load())
}

func TestScheduler_DoesNotRetryMissingResource(t *testing.T) {
	var attempts atomic.Int32
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		attempts.Add(1)
		return common.ErrNoResource
	}, neverUploaded, testLogger(), nil)

	s.Enqueue(context.Background(), []library.Asset{asset("gone")})
	s.Wait()

	// Give a would-be retry timer time to fire.
	time.Sleep(20 * time.Millisecond)
	s.Wait()
	assert.Equal(t, int32(1), attempts.Load())
}

func TestScheduler_ExpiredContextStopsDispatch(t *testing.T) {
	var attempts atomic.Int32
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		attempts.Add(1)
		return nil
	}, neverUploaded, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Enqueue(ctx, []library.Asset{asset("late")})
	s.Wait()
	assert.Equal(t, int32(0), attempts.Load())

	queued, _ := s.Stats()
	assert.Equal(t, 1, queued, "asset stays pending for a later run")
}

func TestScheduler_ClearDropsBacklog(t *testing.T) {
	release := make(chan struct{})
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		<-release
		return nil
	}, neverUploaded, testLogger(), nil)

	s.Enqueue(context.Background(), []library.Asset{asset("a"), asset("b"), asset("c")})
	queued, uploading := s.Stats()
	require.Equal(t, 2, queued)
	require.Equal(t, 1, uploading)

	s.Clear()
	queued, uploading = s.Stats()
	assert.Equal(t, 0, queued)
	assert.Equal(t, 1, uploading, "dispatched transfer keeps running")

	close(release)
	s.Wait()
}

func TestScheduler_ReportsStats(t *testing.T) {
	var mu sync.Mutex
	var last [2]int
	release := make(chan struct{})
	s := NewScheduler(1, immediateBackoff, func(context.Context, library.Asset) error {
		<-release
		return nil
	}, neverUploaded, testLogger(), func(queued, uploading int) {
		mu.Lock()
		last = [2]int{queued, uploading}
		mu.Unlock()
	})

	s.Enqueue(context.Background(), []library.Asset{asset("a"), asset("b")})
	mu.Lock()
	assert.Equal(t, [2]int{1, 1}, last)
	mu.Unlock()

	close(release)
	s.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == [2]int{0, 0}
	}, time.Second, 5*time.Millisecond)
}
