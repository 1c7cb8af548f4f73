package decoder

import (
	"sync"
	"time"
)

const (
	defaultTraceWindow = 10 * time.Second
	// maxTrackedSources bounds the per-window table; once it is full,
	// diagnostics from sources not yet seen in the window are suppressed.
	maxTrackedSources = 4096
)

// TraceLimiter caps classifier diagnostics per source MAC within a fixed
// window. The table is cleared when the window elapses.
type TraceLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	resetAt    time.Time
	seen       map[[6]byte]int
	suppressed uint64
}

// NewTraceLimiter allows limit diagnostics per source per window. A
// non-positive window falls back to 10s.
func NewTraceLimiter(limit int, window time.Duration) *TraceLimiter {
	if window <= 0 {
		window = defaultTraceWindow
	}
	return &TraceLimiter{
		limit:  limit,
		window: window,
		seen:   make(map[[6]byte]int),
	}
}

// Allow records one diagnostic for src at now and reports whether it may be
// written.
func (l *TraceLimiter) Allow(src [6]byte, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.resetAt) {
		clear(l.seen)
		l.resetAt = now.Add(l.window)
	}

	n, ok := l.seen[src]
	if !ok && len(l.seen) >= maxTrackedSources {
		l.suppressed++
		return false
	}
	if n >= l.limit {
		l.suppressed++
		return false
	}
	l.seen[src] = n + 1
	return true
}

// Suppressed is the number of diagnostics refused since creation.
func (l *TraceLimiter) Suppressed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suppressed
}

// Sources is the number of source MACs tracked in the current window.
func (l *TraceLimiter) Sources() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
