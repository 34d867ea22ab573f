//go:build integration

package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anima/internal/ratelimit"
	"anima/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))
	store := ratelimit.NewRedisStore(rc.Client)
	limit := ratelimit.Limit{Requests: 5, Window: time.Minute}

	t.Run("admits up to the limit", func(t *testing.T) {
		for i := range 5 {
			res, err := store.Allow(ctx, "payment:alice", limit)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 4-i, res.Remaining)
		}
		res, err := store.Allow(ctx, "payment:alice", limit)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.True(t, res.ResetAt.After(time.Now()))
	})

	t.Run("concurrent callers never over-admit", func(t *testing.T) {
		var admitted atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := store.Allow(ctx, "interact:bob", limit)
				if err == nil && res.Allowed {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(5), admitted.Load())
	})

	t.Run("window slides", func(t *testing.T) {
		short := ratelimit.Limit{Requests: 1, Window: 200 * time.Millisecond}
		res, err := store.Allow(ctx, "payment:carol", short)
		require.NoError(t, err)
		require.True(t, res.Allowed)

		time.Sleep(300 * time.Millisecond)
		res, err = store.Allow(ctx, "payment:carol", short)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}
