// Package ratelimit tracks per-provider call budgets over a rolling window.
//
// The limiter never blocks and never queues: a denied call means "skip this
// provider now", not "retry shortly". Keys without a configured budget are
// not limited; failing open is a policy choice, so that adding a new
// provider without configuration degrades to unlimited rather than silent
// denial.
package ratelimit

import (
	"sync"
	"time"

	"github.com/shelfscan/bookdex/internal/stats"
)

// Budget is the call allowance for one provider key.
type Budget struct {
	// Limit is the number of calls permitted per window. Zero or negative
	// denies every call.
	Limit int

	// Window is the rolling interval over which calls are counted.
	Window time.Duration
}

// Limiter gates outbound provider calls. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	budgets map[string]Budget
	calls   map[string][]time.Time
	now     func() time.Time
	stats   stats.Collector
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithStats sets the stats collector. Denials increment the rate-limited
// skip counter.
func WithStats(c stats.Collector) Option {
	return func(l *Limiter) {
		l.stats = c
	}
}

// New creates a Limiter with the given per-key budgets.
func New(budgets map[string]Budget, opts ...Option) *Limiter {
	l := &Limiter{
		budgets: make(map[string]Budget, len(budgets)),
		calls:   make(map[string][]time.Time),
		now:     time.Now,
		stats:   stats.NewNoop(),
	}
	for k, b := range budgets {
		l.budgets[k] = b
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow performs an atomic check-and-increment for the given provider key.
// It returns false, without counting the call, once the key's budget is
// exhausted for the current window. Unknown keys are always allowed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	budget, ok := l.budgets[key]
	if !ok {
		return true
	}
	if budget.Limit <= 0 {
		l.stats.IncCounter(stats.MetricRateLimited, 1)
		return false
	}

	now := l.now()
	recent := l.calls[key][:0]
	for _, t := range l.calls[key] {
		if now.Sub(t) < budget.Window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= budget.Limit {
		l.calls[key] = recent
		l.stats.IncCounter(stats.MetricRateLimited, 1)
		return false
	}

	l.calls[key] = append(recent, now)
	return true
}

// Remaining reports how many calls are left in the current window for key.
// Unknown keys report -1 (unlimited).
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	budget, ok := l.budgets[key]
	if !ok {
		return -1
	}

	now := l.now()
	used := 0
	for _, t := range l.calls[key] {
		if now.Sub(t) < budget.Window {
			used++
		}
	}
	if used >= budget.Limit {
		return 0
	}
	return budget.Limit - used
}
