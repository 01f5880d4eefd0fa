package dispatch

import (
	"sync"
	"time"
)

// RateLimiter bounds the outbound send rate with a sliding window: it keeps
// the timestamps of the last accepted calls and admits a new one only while
// fewer than limit remain inside the window. State is in-memory only and
// resets on restart.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time

	now func() time.Time // overridable in tests
}

// NewRateLimiter creates a limiter admitting at most limit calls per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Acquire reports whether a send slot is available right now, consuming it
// if so. Safe for concurrent use; a slot is never double-admitted.
func (r *RateLimiter) Acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictLocked(now)

	if len(r.calls) < r.limit {
		r.calls = append(r.calls, now)
		return true
	}
	return false
}

// TimeUntilNextSlot returns how long until a slot frees up. Zero means a
// slot is available now.
func (r *RateLimiter) TimeUntilNextSlot() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictLocked(now)

	if len(r.calls) < r.limit {
		return 0
	}

	oldest := r.calls[0]
	return r.window - now.Sub(oldest)
}

// evictLocked drops timestamps older than the window. Calls are appended in
// order, so the slice stays sorted and the oldest is always first.
func (r *RateLimiter) evictLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.calls) && !r.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.calls = append(r.calls[:0], r.calls[i:]...)
	}
}
