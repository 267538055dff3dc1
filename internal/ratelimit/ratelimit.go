// Package ratelimit implements a process-wide fixed-window request limiter
// keyed by (operation, identifier). It is a pure in-memory data structure:
// Allow never blocks and never performs I/O, and the clock is injectable so
// tests can drive window expiry deterministically.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Operation identifies the analysis operation being limited.
type Operation string

const (
	OpSnippet Operation = "snippet"
	OpRepo    Operation = "repo"
	OpPR      Operation = "pr"
	OpFix     Operation = "fix"
)

// Limit defines one fixed window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultLimits are the per-operation windows.
func DefaultLimits() map[Operation]Limit {
	return map[Operation]Limit{
		OpSnippet: {MaxRequests: 10, Window: time.Minute},
		OpRepo:    {MaxRequests: 5, Window: time.Minute},
		OpPR:      {MaxRequests: 5, Window: time.Minute},
		OpFix:     {MaxRequests: 3, Window: 5 * time.Minute},
	}
}

// Result reports the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Error is the user-actionable rate-limit condition, carrying the time at
// which the window resets. It is distinct from upstream failures: the caller
// should retry after ResetAt, not report an error.
type Error struct {
	Operation Operation
	ResetAt   time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Operation, e.ResetAt.UTC().Format(time.RFC3339))
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter holds the per-key windows.
type Limiter struct {
	mu      sync.Mutex
	limits  map[Operation]Limit
	windows map[string]*window
	now     func() time.Time
}

// New creates a Limiter with the default per-operation limits.
func New() *Limiter {
	return NewWithOptions(nil, time.Now)
}

// NewWithOptions creates a Limiter with custom limits and clock. Nil limits
// fall back to DefaultLimits; a nil clock falls back to time.Now.
func NewWithOptions(limits map[Operation]Limit, now func() time.Time) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		limits:  limits,
		windows: make(map[string]*window),
		now:     now,
	}
}

// Allow checks and increments the window for (op, identifier) atomically:
// a rejected call does not consume a slot, and an allowed call consumes
// exactly one. Unknown operations use the snippet limit.
func (l *Limiter) Allow(op Operation, identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[op]
	if !ok {
		limit = l.limits[OpSnippet]
	}

	now := l.now()
	key := string(op) + ":" + identifier

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(limit.Window)}
		l.windows[key] = w
		return Result{Allowed: true, Remaining: limit.MaxRequests - 1, ResetAt: w.resetAt}
	}

	if w.count >= limit.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Remaining: limit.MaxRequests - w.count, ResetAt: w.resetAt}
}

// Sweep evicts all expired windows.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// StartSweeper runs Sweep on the given interval until the returned stop
// function is called.
func (l *Limiter) StartSweeper(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// size returns the number of live windows. Test hook.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
