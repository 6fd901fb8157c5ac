package redis_test

import (
	"context"
	"testing"
	"time"

	"klover-backend/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewRateLimitStore(client)
	ctx := context.Background()

	t.Run("allows requests under the limit", func(t *testing.T) {
		for i := int64(1); i <= 5; i++ {
			res, err := store.Allow(ctx, "client-a", 5, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, int64(5), res.Limit)
			assert.Equal(t, 5-i, res.Remaining)
		}
	})

	t.Run("rejects requests over the limit", func(t *testing.T) {
		res, err := store.Allow(ctx, "client-a", 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, int64(0), res.Remaining)
	})

	t.Run("keys are isolated per client", func(t *testing.T) {
		res, err := store.Allow(ctx, "client-b", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(4), res.Remaining)
	})

	t.Run("counter resets after the window expires", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)

		res, err := store.Allow(ctx, "client-a", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(4), res.Remaining)
	})
}
