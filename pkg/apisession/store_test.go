package apisession

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type cursor struct {
	LastID int64
	Polls  int
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(ttl time.Duration) (*Store[cursor], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(ttl, func() cursor { return cursor{} })
	s.now = clock.now
	return s, clock
}

func TestWithCreatesAndKeepsState(t *testing.T) {
	s, _ := newTestStore(time.Minute)

	s.With("overlay", func(c *cursor) {
		assert.Zero(t, c.LastID, "new client starts at zero")
		c.LastID = 42
		c.Polls++
	})
	s.With("overlay", func(c *cursor) {
		assert.Equal(t, int64(42), c.LastID)
		c.Polls++
	})

	got, ok := s.Get("overlay")
	assert.True(t, ok)
	assert.Equal(t, cursor{LastID: 42, Polls: 2}, got)

	_, ok = s.Get("other")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len(), "Get does not create clients")

	s.Delete("overlay")
	assert.Zero(t, s.Len())
}

func TestTTLExpiry(t *testing.T) {
	s, clock := newTestStore(time.Minute)

	s.With("keep", func(*cursor) {})
	s.With("ephemeral", func(*cursor) {})

	clock.advance(40 * time.Second)
	s.With("keep", func(*cursor) {})
	clock.advance(40 * time.Second)

	s.Cleanup()
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("keep")
	assert.True(t, ok, "refreshed client survives cleanup")
}

func TestLazyCleanup(t *testing.T) {
	s, clock := newTestStore(time.Second)
	s.With("stale", func(*cursor) {})
	clock.advance(time.Minute)

	for i := 1; i < cleanupInterval; i++ {
		s.With("active", func(*cursor) {})
	}
	_, ok := s.Get("stale")
	assert.False(t, ok, "evicted on the periodic access")
}

func TestConcurrentAccess(t *testing.T) {
	s := New(time.Minute, func() cursor { return cursor{} })
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("client-%d", n%10)
			s.With(id, func(c *cursor) { c.Polls++ })
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 10; i++ {
		c, _ := s.Get(fmt.Sprintf("client-%d", i))
		total += c.Polls
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, 10, s.Len())
}
