package ratelimit

import (
	"sync"
	"time"
)

const (
	defaultWindow = time.Hour
	defaultDelay  = 2 * time.Second
	minSlowDelay  = 5 * time.Second

	// Below this fraction of remaining budget the limiter recommends
	// stretching requests out over the rest of the window.
	lowBudgetFraction = 0.2
)

// counter tracks one source's requests inside the current rolling window.
type counter struct {
	maxRequests int
	requests    int
	windowStart time.Time
}

// Limiter is a pure admission gate: it never retries or blocks, it only
// answers whether a source may make another request right now.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	counters map[string]*counter
	now      func() time.Time
}

// New creates a Limiter with a rolling window of one hour.
func New() *Limiter {
	return &Limiter{
		window:   defaultWindow,
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Configure registers a source with its hourly request budget. Re-configuring
// an existing source resets its window.
func (l *Limiter) Configure(source string, maxRequests int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters[source] = &counter{
		maxRequests: maxRequests,
		windowStart: l.now(),
	}
}

// CanMakeRequest reports whether the source still has budget in the current
// window. Unknown sources fail closed.
func (l *Limiter) CanMakeRequest(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counter(source)
	if c == nil {
		return false
	}
	return c.requests < c.maxRequests
}

// RecordRequest counts one request against the source's window.
func (l *Limiter) RecordRequest(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c := l.counter(source); c != nil {
		c.requests++
	}
}

// Remaining returns how many requests the source may still make this window.
func (l *Limiter) Remaining(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counter(source)
	if c == nil {
		return 0
	}
	if left := c.maxRequests - c.requests; left > 0 {
		return left
	}
	return 0
}

// RecommendedDelay suggests how long to pause before the source's next
// request. When less than 20% of the budget remains the delay stretches the
// remaining requests across the time left in the window, never under 5s.
func (l *Limiter) RecommendedDelay(source string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.counter(source)
	if c == nil {
		return defaultDelay
	}

	remaining := c.maxRequests - c.requests
	resetIn := l.window - l.now().Sub(c.windowStart)
	if resetIn < 0 {
		resetIn = 0
	}

	if remaining <= 0 {
		return resetIn
	}
	if float64(remaining) >= lowBudgetFraction*float64(c.maxRequests) {
		return defaultDelay
	}

	delay := resetIn / time.Duration(remaining+1)
	if delay < minSlowDelay {
		delay = minSlowDelay
	}
	return delay
}

// counter returns the source's counter after applying the rolling window
// reset. Callers must hold l.mu.
func (l *Limiter) counter(source string) *counter {
	c, ok := l.counters[source]
	if !ok {
		return nil
	}

	if now := l.now(); now.Sub(c.windowStart) >= l.window {
		c.requests = 0
		c.windowStart = now
	}
	return c
}
