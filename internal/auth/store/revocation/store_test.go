package revocation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarence/pkg/platform/sentinel"
)

func TestInMemoryList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	list := NewInMemory(func() time.Time { return now })

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("entry lapses with its ttl", func(t *testing.T) {
		now = now.Add(time.Hour)
		revoked, err := list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl rejected", func(t *testing.T) {
		err := list.Revoke(ctx, "jti-2", 0)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})
}

func TestRedisList(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	list := NewRedis(client)
	require.NoError(t, list.Revoke(ctx, "jti-1", 604800*time.Second))

	assert.True(t, mr.Exists(KeyPrefix+"jti-1"))
	assert.Equal(t, 604800*time.Second, mr.TTL(KeyPrefix+"jti-1"))

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(604800 * time.Second)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeIfAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lists := map[string]List{
		"memory": NewInMemory(func() time.Time { return now }),
		"redis":  NewRedis(client),
	}
	for name, list := range lists {
		t.Run(name, func(t *testing.T) {
			claimed, err := list.RevokeIfAbsent(ctx, "jti-claim", time.Hour)
			require.NoError(t, err)
			assert.True(t, claimed)

			claimed, err = list.RevokeIfAbsent(ctx, "jti-claim", time.Hour)
			require.NoError(t, err)
			assert.False(t, claimed, "second claim loses")

			revoked, err := list.IsRevoked(ctx, "jti-claim")
			require.NoError(t, err)
			assert.True(t, revoked)

			_, err = list.RevokeIfAbsent(ctx, "jti-zero", 0)
			assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		})
	}
}

func TestRevokeIfAbsent_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, list := range map[string]List{"memory": NewInMemory(nil), "redis": NewRedis(client)} {
		t.Run(name, func(t *testing.T) {
			var wins atomic.Int32
			var wg sync.WaitGroup
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					claimed, err := list.RevokeIfAbsent(ctx, "jti-race", time.Hour)
					assert.NoError(t, err)
					if claimed {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestInMemoryRevokeIfAbsent_LapsedEntryCanBeClaimed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	list := NewInMemory(func() time.Time { return now })

	claimed, err := list.RevokeIfAbsent(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	now = now.Add(time.Minute)
	claimed, err = list.RevokeIfAbsent(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}
