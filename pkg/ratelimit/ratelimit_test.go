package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisRateLimiter(client)

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "tenant:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, err := limiter.Allow(ctx, "tenant:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// другой арендатор считается отдельно
	ok, err = limiter.Allow(ctx, "tenant:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Minute, mr.TTL("rate_limit:tenant:1"))

	// новое окно
	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, "tenant:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRateLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRedisRateLimiter(client).Allow(context.Background(), "tenant:1", 3, time.Minute)
	assert.Error(t, err)
}
