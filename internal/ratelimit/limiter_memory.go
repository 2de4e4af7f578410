package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process fixed-window limiter for tests and
// single-instance deployments without Redis.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]*window
	limit  int
	span   time.Duration
	now    func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(limit int, span time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counts: make(map[string]*window),
		limit:  limit,
		span:   span,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.counts[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.span)}
		l.counts[key] = w
	}
	w.count++
	if w.count > l.limit {
		return &Result{Allowed: false, RetryAfter: w.resetAt.Sub(now)}, nil
	}
	return &Result{Allowed: true, Remaining: l.limit - w.count}, nil
}

// SetClock overrides the time source. Test helper.
func (l *MemoryLimiter) SetClock(now func() time.Time) {
	l.now = now
}
