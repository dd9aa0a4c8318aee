// Package ratelimit provides an in-memory, per-key sliding-window request
// ceiling. It backs the form-submit quota (N submissions per client IP per
// window) that the intake service checks before validation; the coarser
// token-bucket limiter at the HTTP edge is separate (see http/middleware).
//
// The limiter is process-local. For horizontally scaled deployments a shared
// store (e.g. Redis) would be needed to enforce a global ceiling.
package ratelimit

import (
	"sync"
	"time"
)

// Window is a per-key sliding-window counter. Each key keeps the timestamps
// of its requests inside the window; a request is allowed while fewer than
// Limit timestamps remain. Idle keys are evicted opportunistically to bound
// memory.
//
// Safe for concurrent use.
type Window struct {
	limit  int
	window time.Duration

	// Now supplies the clock; nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
	lookups uint64
}

// NewWindow constructs a sliding-window limiter allowing limit requests per
// key within window. Values <= 0 are coerced to a minimum of 1 request and
// one second.
func NewWindow(limit int, window time.Duration) *Window {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Window{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
	}
}

// Allow records a request for key and reports whether it is within the
// ceiling. The (N+1)-th call inside the window returns false; once the
// oldest recorded request ages out of the window, calls succeed again.
func (w *Window) Allow(key string) bool {
	now := w.now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	// Opportunistic cleanup of idle keys after a threshold of lookups.
	w.lookups++
	if w.lookups >= 5000 {
		for k, ts := range w.entries {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(w.entries, k)
			}
		}
		w.lookups = 0
	}

	ts := w.entries[key]
	// Drop timestamps that fell out of the window.
	keep := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}

	if len(keep) >= w.limit {
		w.entries[key] = keep
		return false
	}
	w.entries[key] = append(keep, now)
	return true
}

// Remaining reports how many requests key may still make in the current
// window without being limited.
func (w *Window) Remaining(key string) int {
	now := w.now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for _, t := range w.entries[key] {
		if t.After(cutoff) {
			n++
		}
	}
	if n >= w.limit {
		return 0
	}
	return w.limit - n
}

func (w *Window) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}
