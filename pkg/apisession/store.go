// Package apisession keeps per-client state for API handlers, such as the
// journal cursor of an overlay that polls for new tracker events. Clients
// identify themselves with an opaque id; idle clients are evicted.
package apisession

import (
	"sync"
	"time"
)

// cleanupInterval is how many accesses pass between lazy evictions.
const cleanupInterval = 100

type entry[T any] struct {
	value      T
	lastAccess time.Time
}

// Store maps client ids to a value of T, created with newFn on first access.
// Values are only read and changed inside With, under the store lock.
type Store[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	ttl      time.Duration
	newFn    func() T
	now      func() time.Time
	accesses int
}

// New creates a Store that evicts clients idle longer than ttl.
func New[T any](ttl time.Duration, newFn func() T) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		newFn:   newFn,
		now:     time.Now,
	}
}

// With runs fn on the client's state, creating it if needed, and refreshes
// the client's last access.
func (s *Store[T]) With(id string, fn func(v *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accesses++
	if s.accesses%cleanupInterval == 0 {
		s.cleanupLocked()
	}

	e, ok := s.entries[id]
	if !ok {
		e = &entry[T]{value: s.newFn()}
		s.entries[id] = e
	}
	e.lastAccess = s.now()
	fn(&e.value)
}

// Get returns a copy of the client's state and whether the client is known.
// It does not refresh the last access.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete forgets a client.
func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Cleanup evicts all clients idle longer than the TTL.
func (s *Store[T]) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

func (s *Store[T]) cleanupLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

// Len returns the number of known clients.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
