package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for window expiry tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewWithOptions(nil, clock.now), clock
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		res := l.Allow(OpPR, "octocat/hello-world")
		assert.True(t, res.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 4-i, res.Remaining)
	}
}

func TestAllowRejectsOverLimit(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(OpPR, "octocat/hello-world").Allowed)
	}

	res := l.Allow(OpPR, "octocat/hello-world")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, clock.t.Add(time.Minute), res.ResetAt)
}

func TestRejectedCallDoesNotConsumeSlot(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 7; i++ {
		l.Allow(OpPR, "octocat/hello-world")
	}

	// Window expires; a full quota is available again.
	clock.advance(time.Minute + time.Second)
	res := l.Allow(OpPR, "octocat/hello-world")
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func TestWindowReset(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(OpPR, "a/b").Allowed)
	}
	require.False(t, l.Allow(OpPR, "a/b").Allowed)

	clock.advance(61 * time.Second)
	assert.True(t, l.Allow(OpPR, "a/b").Allowed)
}

func TestIdentifiersIsolated(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(OpPR, "a/b").Allowed)
	}
	require.False(t, l.Allow(OpPR, "a/b").Allowed)

	assert.True(t, l.Allow(OpPR, "c/d").Allowed)
}

func TestOperationsIsolated(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(OpPR, "a/b").Allowed)
	}
	require.False(t, l.Allow(OpPR, "a/b").Allowed)

	assert.True(t, l.Allow(OpRepo, "a/b").Allowed)
}

func TestFixWindowIsFiveMinutes(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow(OpFix, "a/b").Allowed)
	}
	require.False(t, l.Allow(OpFix, "a/b").Allowed)

	clock.advance(2 * time.Minute)
	assert.False(t, l.Allow(OpFix, "a/b").Allowed)

	clock.advance(4 * time.Minute)
	assert.True(t, l.Allow(OpFix, "a/b").Allowed)
}

func TestUnknownOperationUsesSnippetLimit(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow(Operation("bogus"), "x").Allowed)
	}
	assert.False(t, l.Allow(Operation("bogus"), "x").Allowed)
}

func TestSweepEvictsExpiredWindows(t *testing.T) {
	l, clock := newTestLimiter()

	l.Allow(OpPR, "a/b")
	l.Allow(OpSnippet, "local")
	require.Equal(t, 2, l.size())

	clock.advance(2 * time.Minute)
	l.Allow(OpFix, "a/b")
	l.Sweep()

	assert.Equal(t, 1, l.size())
}

func TestStartSweeperStopIdempotent(t *testing.T) {
	l := New()
	stop := l.StartSweeper(10 * time.Millisecond)
	stop()
	stop() // second call must not panic
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Operation: OpSnippet,
		ResetAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	assert.Equal(t, "rate limit exceeded for snippet, retry after 2026-01-02T03:04:05Z", err.Error())
}
