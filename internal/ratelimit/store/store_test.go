package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseFixedWindow(t *testing.T, s CounterStore, expire func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	count, ttl, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, ttl)

	for want := 1; want <= 3; want++ {
		count, ttl, err = s.Increment(ctx, "k", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.Greater(t, ttl, 59*time.Minute)
	}

	count, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	expire(time.Hour + time.Second)
	count, _, err = s.Increment(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "window restarts after expiry")

	require.NoError(t, s.Delete(ctx, "k"))
	count, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInMemoryCounterStore(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s := NewInMemory(func() time.Time { return now })
	exerciseFixedWindow(t, s, func(d time.Duration) { now = now.Add(d) })
}

func TestRedisCounterStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseFixedWindow(t, NewRedis(client), mr.FastForward)
}
