package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow allows limit requests per key in each aligned window.
type FixedWindow struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

func NewFixedWindow(limit int, period time.Duration) *FixedWindow {
	return newFixedWindow(limit, period, time.Now)
}

func newFixedWindow(limit int, period time.Duration, now func() time.Time) *FixedWindow {
	if period <= 0 {
		period = time.Minute
	}
	rl := &FixedWindow{
		limit:   limit,
		period:  period,
		now:     now,
		windows: make(map[string]*window),
		ticker:  time.NewTicker(period),
		done:    make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// current returns key's window, starting a new one if the last has ended.
// Must be called with rl.mu held.
func (rl *FixedWindow) current(key string, now time.Time) *window {
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Truncate(rl.period).Add(rl.period)}
		rl.windows[key] = w
	}
	return w
}

func (rl *FixedWindow) Allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.current(key, now)
	if w.count >= rl.limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, 0
}

func (rl *FixedWindow) Remaining(key string) int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		return rl.limit
	}
	return max(rl.limit-w.count, 0)
}

func (rl *FixedWindow) Limit() int {
	return rl.limit
}

func (rl *FixedWindow) evictLoop() {
	for {
		select {
		case <-rl.ticker.C:
			rl.evict()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindow) evict() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

func (rl *FixedWindow) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.ticker.Stop()
	})
}
