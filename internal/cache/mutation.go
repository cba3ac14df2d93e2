package cache

import (
	"context"
	"time"

	"github.com/nadav-galili/starter/internal/apperr"
)

// List is the cached shape of a paginated collection.
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Get reads a typed value from the cache.
func Get[T any](s *Service, key Key) (T, bool) {
	var zero T
	v, ok := s.Value(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Fetch is the typed variant of Service.Fetch.
func Fetch[T any](ctx context.Context, s *Service, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

// snapshot captures the pre-mutation values for rollback. It is consumed
// only on failure and discarded otherwise.
type entrySnapshot struct {
	value     any
	hasValue  bool
	fetchedAt time.Time
	existed   bool
}

type snapshot struct {
	detail entrySnapshot
	lists  map[string]entrySnapshot
}

func (s *Service) capture(key Key) entrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return entrySnapshot{}
	}
	return entrySnapshot{value: e.value, hasValue: e.hasValue, fetchedAt: e.fetchedAt, existed: true}
}

func (s *Service) takeSnapshot(detail Key, listKeys []Key) snapshot {
	snap := snapshot{detail: s.capture(detail), lists: make(map[string]entrySnapshot, len(listKeys))}
	for _, lk := range listKeys {
		snap.lists[lk.String()] = s.capture(lk)
	}
	return snap
}

func (s *Service) restoreOne(key Key, es entrySnapshot) {
	if !es.existed {
		s.Remove(key)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(key.String())
	e.value = es.value
	e.hasValue = es.hasValue
	e.fetchedAt = es.fetchedAt
	if es.hasValue {
		e.state = StateFresh
	} else {
		e.state = StateIdle
	}
	e.err = nil
}

func (s *Service) restore(detail Key, snap snapshot) {
	s.restoreOne(detail, snap.detail)
	for k, es := range snap.lists {
		s.restoreOne(decodeKey(k), es)
	}
}

// Update describes an optimistic update mutation.
type Update[T any] struct {
	// DetailKey is the entity's detail cache key.
	DetailKey Key
	// ListPrefix selects every cached list variant the entity may appear
	// in. Optimistic writes fan out across all of them.
	ListPrefix Key
	// Match identifies the entity inside a cached list.
	Match func(T) bool
	// Apply produces the optimistic result from the current value.
	Apply func(T) T
	// Call performs the underlying write request.
	Call func(context.Context) error
	// SuccessMessage overrides the fixed success toast text.
	SuccessMessage string
}

// Delete describes an optimistic delete mutation.
type Delete[T any] struct {
	DetailKey      Key
	ListPrefix     Key
	Match          func(T) bool
	Call           func(context.Context) error
	SuccessMessage string
}

const (
	defaultUpdateMessage = "Saved."
	defaultDeleteMessage = "Deleted."
)

// RunUpdate executes the optimistic update protocol:
//
//  1. cancel in-flight fetches for the detail key and every cached list
//     variant, so a late response cannot clobber the optimistic value
//  2. snapshot current detail and list values
//  3. write the optimistic result synchronously, visible to subscribers
//  4. issue the write request under the mutation retry policy
//  5. on success, fixed success toast; the snapshot is not consulted
//  6. on failure, restore detail and lists verbatim and toast the
//     classified message exactly once
//  7. either way, mark the touched keys stale so a background refetch
//     reconciles any server-side divergence
//
// A cancelled call rolls back silently: cancellation is an intentional
// outcome, not a failure to present.
func RunUpdate[T any](ctx context.Context, s *Service, m Update[T]) error {
	listKeys := s.KeysWithPrefix(m.ListPrefix)
	s.CancelInflight(m.DetailKey)
	for _, lk := range listKeys {
		s.CancelInflight(lk)
	}

	snap := s.takeSnapshot(m.DetailKey, listKeys)

	if cur, ok := Get[T](s, m.DetailKey); ok {
		s.SetValue(m.DetailKey, m.Apply(cur))
	}
	for _, lk := range listKeys {
		if list, ok := Get[List[T]](s, lk); ok {
			items := make([]T, len(list.Items))
			for i, item := range list.Items {
				if m.Match(item) {
					items[i] = m.Apply(item)
				} else {
					items[i] = item
				}
			}
			s.SetValue(lk, List[T]{Items: items, Total: list.Total})
		}
	}

	err := s.callWithRetry(ctx, m.Call)
	s.settleMutation(m.DetailKey, m.ListPrefix, snap, err, m.SuccessMessage, defaultUpdateMessage)
	return err
}

// RunDelete executes the same protocol for deletion: the optimistic step
// removes the detail entry outright and drops the entity from every cached
// list, decrementing the cached total.
func RunDelete[T any](ctx context.Context, s *Service, m Delete[T]) error {
	listKeys := s.KeysWithPrefix(m.ListPrefix)
	s.CancelInflight(m.DetailKey)
	for _, lk := range listKeys {
		s.CancelInflight(lk)
	}

	snap := s.takeSnapshot(m.DetailKey, listKeys)

	s.Remove(m.DetailKey)
	for _, lk := range listKeys {
		if list, ok := Get[List[T]](s, lk); ok {
			items := make([]T, 0, len(list.Items))
			removed := 0
			for _, item := range list.Items {
				if m.Match(item) {
					removed++
					continue
				}
				items = append(items, item)
			}
			s.SetValue(lk, List[T]{Items: items, Total: list.Total - removed})
		}
	}

	err := s.callWithRetry(ctx, m.Call)
	s.settleMutation(m.DetailKey, m.ListPrefix, snap, err, m.SuccessMessage, defaultDeleteMessage)
	return err
}

func (s *Service) settleMutation(detail Key, listPrefix Key, snap snapshot, err error, message, fallback string) {
	switch {
	case err == nil:
		if s.notifier != nil {
			if message == "" {
				message = fallback
			}
			s.notifier.Success(message)
		}
	case apperr.IsCancelled(err):
		s.restore(detail, snap)
	default:
		s.restore(detail, snap)
		if s.notifier != nil {
			s.notifier.Error(apperr.Classify(err).Message)
		}
	}

	s.Invalidate(detail)
	s.InvalidatePrefix(listPrefix)
}
