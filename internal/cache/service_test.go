package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testClock is an adjustable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(clock *testClock) *Service {
	return NewService(Options{
		Now: clock.Now,
		// No real sleeping between retries in tests.
		Sleep: func(ctx context.Context, d time.Duration) error {
			if ctx.Err() != nil {
				return context.Canceled
			}
			return nil
		},
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestFetchDeduplicatesConcurrentRequests(t *testing.T) {
	s := newTestService(newTestClock())
	defer s.Close()

	key := NewKey("posts", "detail", "1")
	var calls int32
	gate := make(chan struct{})

	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return "value", nil
	}

	results := make(chan string, 2)
	for i := 0; i < 2; i++ {
		go func() {
			v, err := s.Fetch(context.Background(), key, fn)
			if err != nil {
				results <- "error: " + err.Error()
				return
			}
			results <- v.(string)
		}()
	}

	// Both callers must be attached to one in-flight request.
	waitFor(t, func() bool { return atomic.LoadInt32(&calls) == 1 })
	close(gate)

	for i := 0; i < 2; i++ {
		if got := <-results; got != "value" {
			t.Fatalf("fetch %d: got %q, want %q", i, got, "value")
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 network call, got %d", n)
	}
}

func TestFetchStaleWhileRevalidate(t *testing.T) {
	clock := newTestClock()
	s := newTestService(clock)
	defer s.Close()

	key := NewKey("posts", "detail", "1")
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "v1", nil
		}
		return "v2", nil
	}

	v, err := s.Fetch(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	if v != "v1" {
		t.Fatalf("initial fetch = %v, want v1", v)
	}

	// Within the freshness window: served from cache, no call.
	clock.Advance(time.Minute)
	v, _ = s.Fetch(context.Background(), key, fn)
	if v != "v1" || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("fresh read = %v (calls %d), want v1 with 1 call", v, calls)
	}

	// Past the window: the stale value is served synchronously while a
	// background refetch runs.
	clock.Advance(5 * time.Minute)
	v, err = s.Fetch(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("stale read: %v", err)
	}
	if v != "v1" {
		t.Fatalf("stale read = %v, want the previously cached v1", v)
	}

	waitFor(t, func() bool {
		got, ok := s.Value(key)
		return ok && got == "v2"
	})
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 calls after revalidation, got %d", n)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	s := newTestService(newTestClock())
	defer s.Close()

	var calls int32
	fn := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, httpErr(503)
		}
		return "ok", nil
	}

	v, err := s.Fetch(context.Background(), NewKey("flaky"), fn)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if v != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("got %v after %d calls, want ok after 3", v, calls)
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	s := newTestService(newTestClock())
	defer s.Close()

	key := NewKey("missing")
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, httpErr(404)
	}

	if _, err := s.Fetch(context.Background(), key, fn); err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 call for a 404, got %d", n)
	}
	if st := s.EntryState(key); st != StateError {
		t.Fatalf("entry state = %v, want error", st)
	}
}

func TestCancelledFetchDoesNotMutateCache(t *testing.T) {
	s := newTestService(newTestClock())
	defer s.Close()

	key := NewKey("slow")
	started := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), key, fn)
		errCh <- err
	}()

	<-started
	s.CancelInflight(key)

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled outcome, got %v", err)
	}
	if _, ok := s.Value(key); ok {
		t.Fatalf("cancelled fetch must not write to the cache")
	}
}

func TestRetentionEvictsUnsubscribedEntries(t *testing.T) {
	clock := newTestClock()
	s := newTestService(clock)
	defer s.Close()

	keep := NewKey("kept")
	drop := NewKey("dropped")
	fn := func(ctx context.Context) (any, error) { return "v", nil }

	unsubscribe := s.Subscribe(keep)
	defer unsubscribe()
	if _, err := s.Fetch(context.Background(), keep, fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := s.Fetch(context.Background(), drop, fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	clock.Advance(31 * time.Minute)
	s.collect()

	if _, ok := s.Value(keep); !ok {
		t.Fatalf("subscribed entry must survive collection")
	}
	if _, ok := s.Value(drop); ok {
		t.Fatalf("unsubscribed entry past the retention window must be evicted")
	}
}

func TestRetentionWindowStartsAtLastUnsubscribe(t *testing.T) {
	clock := newTestClock()
	s := newTestService(clock)
	defer s.Close()

	key := NewKey("entry")
	fn := func(ctx context.Context) (any, error) { return "v", nil }

	unsubscribe := s.Subscribe(key)
	if _, err := s.Fetch(context.Background(), key, fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	clock.Advance(2 * time.Hour)
	unsubscribe()

	// Still inside the window measured from detach.
	clock.Advance(29 * time.Minute)
	s.collect()
	if _, ok := s.Value(key); !ok {
		t.Fatalf("entry evicted before the retention window elapsed")
	}

	clock.Advance(2 * time.Minute)
	s.collect()
	if _, ok := s.Value(key); ok {
		t.Fatalf("entry should be evicted after the retention window")
	}
}

func TestInvalidateTriggersRefetchForSubscribedEntries(t *testing.T) {
	s := newTestService(newTestClock())
	defer s.Close()

	key := NewKey("watched")
	var calls int32
	fn := func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "v1", nil
		}
		return "v2", nil
	}

	unsubscribe := s.Subscribe(key)
	defer unsubscribe()
	if _, err := s.Fetch(context.Background(), key, fn); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	s.Invalidate(key)
	waitFor(t, func() bool {
		v, ok := s.Value(key)
		return ok && v == "v2"
	})
}

func TestKeyEncoding(t *testing.T) {
	a := NewKey("items", "list")
	b := NewKey("items", "list", "filter=active")
	c := NewKey("items", "listing")

	if !hasPrefix(b.String(), a) {
		t.Errorf("parameterized list key should match the list prefix")
	}
	if !hasPrefix(a.String(), a) {
		t.Errorf("exact key should match its own prefix")
	}
	if hasPrefix(c.String(), a) {
		t.Errorf("sibling key must not match the prefix")
	}
	if a.String() == NewKey("items/list").String() {
		t.Errorf("key parts must not collide with joined strings")
	}
}
