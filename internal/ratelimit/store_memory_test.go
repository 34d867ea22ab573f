package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStore_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.now
	limit := Limit{Requests: 3, Window: time.Minute}

	for i := range 3 {
		res, err := s.Allow(ctx, "payment:alice", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		assert.Equal(t, 2-i, res.Remaining)
		clock.advance(10 * time.Second)
	}

	res, err := s.Allow(ctx, "payment:alice", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, clock.t.Add(-30*time.Second).Add(time.Minute), res.ResetAt, "resets when the oldest request expires")

	t.Run("other callers have their own window", func(t *testing.T) {
		res, err := s.Allow(ctx, "payment:bob", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("oldest request slides out", func(t *testing.T) {
		clock.advance(31 * time.Second)
		res, err := s.Allow(ctx, "payment:alice", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Zero(t, res.Remaining)
	})
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1, (&Result{ResetAt: now}).RetryAfter(now))
	assert.Equal(t, 2, (&Result{ResetAt: now.Add(1500 * time.Millisecond)}).RetryAfter(now))
	assert.Equal(t, 30, (&Result{ResetAt: now.Add(30 * time.Second)}).RetryAfter(now))
}

func TestMemoryStore_SweepDropsIdleKeys(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.now

	_, err := s.Allow(ctx, "payment:alice", Limit{Requests: 5, Window: time.Minute})
	require.NoError(t, err)
	_, err = s.Allow(ctx, "interact:bob", Limit{Requests: 5, Window: 10 * time.Minute})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	clock.advance(30 * time.Second)
	assert.Zero(t, s.Sweep(), "both windows still hold a live request")

	clock.advance(30 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	res, err := s.Allow(ctx, "payment:alice", Limit{Requests: 5, Window: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Remaining, "a swept caller starts a fresh window")
}

func TestLimiter_SweepCoversPrimaryAndFallback(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	primary, fallback := NewMemoryStore(), NewMemoryStore()
	primary.now, fallback.now = clock.now, clock.now
	limit := Limit{Requests: 2, Window: time.Minute}

	l := New(primary, map[Class]Limit{ClassPayment: limit}, WithFallback(fallback))
	_, err := primary.Allow(ctx, "payment:alice", limit)
	require.NoError(t, err)
	_, err = fallback.Allow(ctx, "payment:bob", limit)
	require.NoError(t, err)

	clock.advance(time.Minute)
	l.sweep(ctx)
	assert.Zero(t, primary.Len())
	assert.Zero(t, fallback.Len())
}

func TestLimiter_RunSweeperStopsWithContext(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.RunSweeper(ctx, time.Millisecond) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
