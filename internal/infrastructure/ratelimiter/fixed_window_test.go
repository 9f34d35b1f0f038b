package ratelimiter

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, limit int) (*FixedWindow, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := newFixedWindow(limit, time.Minute, clock.Now)
	t.Cleanup(rl.Close)
	return rl, clock
}

func TestFixedWindow_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 1, rl.Remaining("a"))

	ok, _ = rl.Allow("a")
	assert.True(t, ok)

	clock.Advance(15 * time.Second)
	ok, retryAfter := rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, retryAfter)
	assert.Equal(t, 0, rl.Remaining("a"))

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "keys are counted separately")

	clock.Advance(45 * time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "a new window starts at the boundary")
	assert.Equal(t, 1, rl.Remaining("a"))
}

func TestFixedWindow_Evict(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)

	rl.Allow("a")
	clock.Advance(time.Minute)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.windows)
}

func TestFixedWindow_ConcurrentAllow(t *testing.T) {
	rl, _ := newTestLimiter(t, 50)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := rl.Allow("shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestFixedWindow_CloseIsIdempotent(t *testing.T) {
	rl := NewFixedWindow(1, time.Minute)
	require.NotPanics(t, func() {
		rl.Close()
		rl.Close()
	})
}

func TestSourceKey(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/health", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "addr:10.0.0.1", SourceKey(r))

	r.Header.Set(DefaultSourceHeader, "alice")
	assert.Equal(t, "client:alice", SourceKey(r))
}
