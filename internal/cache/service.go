package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/nadav-galili/starter/internal/apperr"
	"github.com/nadav-galili/starter/internal/toast"
)

// State of a cache entry.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateFresh    State = "fresh"
	StateError    State = "error"
)

// Default timing windows.
const (
	DefaultStaleAfter = 5 * time.Minute
	DefaultGCAfter    = 30 * time.Minute
	defaultGCInterval = time.Minute
)

// FetchFunc loads the value for a key, typically via the HTTP layer.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value       any
	hasValue    bool
	fetchedAt   time.Time
	state       State
	err         error
	loader      FetchFunc
	subscribers int
	idleSince   time.Time
	cancel      context.CancelFunc
}

// Options configures a Service. Zero values take defaults.
type Options struct {
	StaleAfter      time.Duration
	GCAfter         time.Duration
	GCInterval      time.Duration
	QueryRetries    int
	MutationRetries int
	Notifier        toast.Notifier
	Logger          zerolog.Logger

	// Now and Sleep are injectable for deterministic tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Service is the cache. It is the only shared mutable state in the kit;
// every write to a key funnels through its command surface. Construct one
// instance at the composition root and pass it by reference.
type Service struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	staleAfter      time.Duration
	gcAfter         time.Duration
	queryRetries    int
	mutationRetries int
	notifier        toast.Notifier
	log             zerolog.Logger
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error

	stop chan struct{}
	done chan struct{}
}

// NewService constructs a Service and starts its retention janitor.
func NewService(opts Options) *Service {
	if opts.StaleAfter == 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.GCAfter == 0 {
		opts.GCAfter = DefaultGCAfter
	}
	if opts.GCInterval == 0 {
		opts.GCInterval = defaultGCInterval
	}
	if opts.QueryRetries == 0 {
		opts.QueryRetries = DefaultQueryRetries
	}
	if opts.MutationRetries == 0 {
		opts.MutationRetries = DefaultMutationRetries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return context.Canceled
			case <-time.After(d):
				return nil
			}
		}
	}

	s := &Service{
		entries:         make(map[string]*entry),
		staleAfter:      opts.StaleAfter,
		gcAfter:         opts.GCAfter,
		queryRetries:    opts.QueryRetries,
		mutationRetries: opts.MutationRetries,
		notifier:        opts.Notifier,
		log:             opts.Logger,
		now:             opts.Now,
		sleep:           opts.Sleep,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	go s.janitor(opts.GCInterval)
	return s
}

// Close stops the retention janitor and cancels in-flight fetches.
func (s *Service) Close() {
	close(s.stop)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
}

func (s *Service) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.collect()
		}
	}
}

// collect evicts entries that have had no subscribers for the retention
// window.
func (s *Service) collect() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if e.subscribers > 0 || e.state == StateFetching {
			continue
		}
		if !e.idleSince.IsZero() && now.Sub(e.idleSince) >= s.gcAfter {
			delete(s.entries, k)
		}
	}
}

func (s *Service) entryLocked(k string) *entry {
	e := s.entries[k]
	if e == nil {
		e = &entry{state: StateIdle, idleSince: s.now()}
		s.entries[k] = e
	}
	return e
}

// Subscribe registers interest in a key, deferring its eviction. The
// returned func detaches; the retention window starts when the last
// subscriber detaches.
func (s *Service) Subscribe(key Key) func() {
	k := key.String()
	s.mu.Lock()
	e := s.entryLocked(k)
	e.subscribers++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if e, ok := s.entries[k]; ok {
				e.subscribers--
				if e.subscribers <= 0 {
					e.subscribers = 0
					e.idleSince = s.now()
				}
			}
		})
	}
}

// Value returns the cached value for key, if any.
func (s *Service) Value(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// EntryState returns the current state of a key's entry.
func (s *Service) EntryState(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return StateIdle
	}
	return e.state
}

// SetValue writes a value directly, marking the entry fresh. This is the
// optimistic-update write path; regular loads go through Fetch.
func (s *Service) SetValue(key Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key.String())
	e.value = value
	e.hasValue = true
	e.fetchedAt = s.now()
	e.state = StateFresh
	e.err = nil
}

// Remove drops an entry outright.
func (s *Service) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	if e, ok := s.entries[k]; ok && e.cancel != nil {
		e.cancel()
	}
	delete(s.entries, k)
}

// CancelInflight aborts any in-flight fetch for key. The aborted fetch
// resolves as cancelled and leaves the cache untouched.
func (s *Service) CancelInflight(key Key) {
	k := key.String()
	s.mu.Lock()
	e, ok := s.entries[k]
	var cancel context.CancelFunc
	if ok && e.cancel != nil {
		cancel = e.cancel
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.group.Forget(k)
}

// CancelInflightPrefix aborts in-flight fetches for every key in a family.
func (s *Service) CancelInflightPrefix(prefix Key) {
	for _, key := range s.KeysWithPrefix(prefix) {
		s.CancelInflight(key)
	}
}

// KeysWithPrefix lists cached keys belonging to a family.
func (s *Service) KeysWithPrefix(prefix Key) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Key
	for k := range s.entries {
		if hasPrefix(k, prefix) {
			out = append(out, decodeKey(k))
		}
	}
	return out
}

func decodeKey(encoded string) Key {
	return Key(splitKey(encoded))
}

// Invalidate marks a key stale. If the entry has subscribers and a known
// loader, a background refetch reconciles it immediately; otherwise the
// next read does.
func (s *Service) Invalidate(key Key) {
	k := key.String()
	s.mu.Lock()
	e, ok := s.entries[k]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.fetchedAt = e.fetchedAt.Add(-s.staleAfter)
	refetch := e.subscribers > 0 && e.loader != nil && e.state != StateFetching
	loader := e.loader
	s.mu.Unlock()

	if refetch {
		go s.loadShared(key, loader, s.queryRetries)
	}
}

// InvalidatePrefix marks every cached key in a family stale.
func (s *Service) InvalidatePrefix(prefix Key) {
	for _, key := range s.KeysWithPrefix(prefix) {
		s.Invalidate(key)
	}
}

// Fetch returns the value for key, loading it with fn on a miss.
//
// A fresh entry is served as is. A stale entry is served immediately while
// a background refetch runs (stale-while-revalidate). On a miss the load is
// deduplicated: concurrent callers for the same key share one underlying
// call and resolve together. Retries follow the query retry policy.
func (s *Service) Fetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	k := key.String()

	s.mu.Lock()
	e := s.entryLocked(k)
	e.loader = fn
	if e.hasValue {
		value := e.value
		stale := s.now().Sub(e.fetchedAt) >= s.staleAfter
		revalidate := stale && e.state != StateFetching
		s.mu.Unlock()

		if revalidate {
			go s.loadShared(key, fn, s.queryRetries)
		}
		return value, nil
	}
	s.mu.Unlock()

	ch := s.group.DoChan(k, func() (any, error) {
		return s.load(key, fn, s.queryRetries)
	})
	select {
	case <-ctx.Done():
		return nil, context.Canceled
	case res := <-ch:
		return res.Val, res.Err
	}
}

// loadShared routes background refetches through the same singleflight
// group as misses, so a revalidation and a concurrent miss still collapse
// into one call.
func (s *Service) loadShared(key Key, fn FetchFunc, maxRetries int) {
	_, err, _ := s.group.Do(key.String(), func() (any, error) {
		return s.load(key, fn, maxRetries)
	})
	if err != nil && !apperr.IsCancelled(err) {
		s.log.Debug().Str("key", key.String()).Err(err).Msg("background refetch failed")
	}
}

// load performs the actual fetch with retry. It owns the entry's fetching
// state and in-flight cancel. A cancelled load restores the prior state
// and never mutates the cached value.
func (s *Service) load(key Key, fn FetchFunc, maxRetries int) (any, error) {
	k := key.String()
	lctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	e := s.entryLocked(k)
	prior := e.state
	e.state = StateFetching
	e.cancel = cancel
	s.mu.Unlock()

	settle := func(value any, err error, cancelled bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		e, ok := s.entries[k]
		if !ok {
			return
		}
		e.cancel = nil
		switch {
		case cancelled:
			e.state = prior
		case err != nil:
			e.state = StateError
			e.err = err
		default:
			e.value = value
			e.hasValue = true
			e.fetchedAt = s.now()
			e.state = StateFresh
			e.err = nil
		}
	}

	failures := 0
	for {
		value, err := fn(lctx)
		if lctx.Err() != nil || apperr.IsCancelled(err) {
			settle(nil, nil, true)
			return nil, context.Canceled
		}
		if err == nil {
			settle(value, nil, false)
			return value, nil
		}

		if !ShouldRetry(failures, err, maxRetries) {
			settle(nil, err, false)
			return nil, err
		}
		if serr := s.sleep(lctx, Backoff(failures)); serr != nil {
			settle(nil, nil, true)
			return nil, context.Canceled
		}
		failures++
	}
}

// callWithRetry runs a mutation call under the mutation retry policy.
func (s *Service) callWithRetry(ctx context.Context, call func(context.Context) error) error {
	failures := 0
	for {
		err := call(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || apperr.IsCancelled(err) {
			return context.Canceled
		}
		if !ShouldRetry(failures, err, s.mutationRetries) {
			return err
		}
		if serr := s.sleep(ctx, Backoff(failures)); serr != nil {
			return context.Canceled
		}
		failures++
	}
}
