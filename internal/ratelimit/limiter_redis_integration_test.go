//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/ratelimit"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/testutil/containers"
)

func TestRedisLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	t.Run("counts per key within the window", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		limiter := ratelimit.NewRedisLimiter(rc.Client, 3, time.Minute)

		for i := 0; i < 3; i++ {
			res, err := limiter.Allow(ctx, "203.0.113.1")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2-i, res.Remaining)
		}

		res, err := limiter.Allow(ctx, "203.0.113.1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Greater(t, res.RetryAfter, time.Duration(0))
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		limiter := ratelimit.NewRedisLimiter(rc.Client, 1, time.Minute)

		res, err := limiter.Allow(ctx, "203.0.113.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "203.0.113.1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		res, err = limiter.Allow(ctx, "203.0.113.2")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		limiter := ratelimit.NewRedisLimiter(rc.Client, 1, time.Second)

		res, err := limiter.Allow(ctx, "203.0.113.3")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "203.0.113.3")
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		time.Sleep(1100 * time.Millisecond)

		res, err = limiter.Allow(ctx, "203.0.113.3")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}
