package source

import (
	"context"
	"sync"
)

// Memory is an in-memory source for tests and the scenario harness. It keeps
// the authoritative item set current as batches are published, so a re-fetch
// after publishing observes the post-change state, matching how a real data
// source behaves across a full resynchronization.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory[T any] struct {
	identity  func(T) string
	predicate func(T) bool

	mu      sync.Mutex
	items   []T
	subs    map[int]func(Batch)
	nextSub int
}

// NewMemory creates a memory source over the initial item set. predicate is
// the query's own membership predicate; nil admits everything.
func NewMemory[T any](identity func(T) string, items []T, predicate func(T) bool) *Memory[T] {
	m := &Memory[T]{
		identity:  identity,
		predicate: predicate,
		items:     make([]T, len(items)),
		subs:      make(map[int]func(Batch)),
	}
	copy(m.items, items)
	return m
}

// Execute returns the current items satisfying the predicate.
func (m *Memory[T]) Execute(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]T, 0, len(m.items))
	for _, it := range m.items {
		if m.predicate == nil || m.predicate(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Matches reports whether item satisfies the query predicate.
func (m *Memory[T]) Matches(item T) bool {
	return m.predicate == nil || m.predicate(item)
}

// Subscribe registers fn for future batches.
func (m *Memory[T]) Subscribe(fn func(Batch)) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return &memorySubscription[T]{source: m, id: id}, nil
}

// Publish applies a batch to the authoritative item set and delivers it to
// every subscriber in subscription order. Items of foreign types pass
// through to subscribers untouched.
func (m *Memory[T]) Publish(batch Batch) {
	m.mu.Lock()
	for _, ch := range batch {
		item, ok := ch.Item.(T)
		if !ok {
			continue
		}
		switch ch.Action {
		case ActionCreate:
			m.items = append(m.items, item)
		case ActionUpdate:
			m.replace(item)
		case ActionDelete:
			m.remove(m.identity(item))
		}
	}
	fns := make([]func(Batch), 0, len(m.subs))
	for id := 0; id < m.nextSub; id++ {
		if fn, ok := m.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(batch)
	}
}

func (m *Memory[T]) replace(item T) {
	id := m.identity(item)
	for i, it := range m.items {
		if m.identity(it) == id {
			m.items[i] = item
			return
		}
	}
	m.items = append(m.items, item)
}

func (m *Memory[T]) remove(id string) {
	for i, it := range m.items {
		if m.identity(it) == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

type memorySubscription[T any] struct {
	source *Memory[T]
	once   sync.Once
	id     int
}

// Close removes the subscriber. Idempotent.
func (s *memorySubscription[T]) Close() error {
	s.once.Do(func() {
		s.source.mu.Lock()
		delete(s.source.subs, s.id)
		s.source.mu.Unlock()
	})
	return nil
}
