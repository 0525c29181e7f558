package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps counters in process memory. Suitable for a single
// instance; use the redis driver when several replicas must share quotas.
type MemoryLimiter struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*counterWindow
}

type counterWindow struct {
	start time.Time
	count int
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		window:  window,
		now:     time.Now,
		windows: make(map[string]*counterWindow),
	}
}

func (l *MemoryLimiter) CheckAndIncrement(_ context.Context, key string, limit int) error {
	now := l.now()
	start := windowStart(now, l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.start.Before(start) {
		w = &counterWindow{start: start}
		l.windows[key] = w
	}

	if w.count >= limit {
		return &LimitError{RetryAfter: start.Add(l.window).Sub(now)}
	}
	w.count++
	return nil
}
