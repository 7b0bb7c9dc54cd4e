package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clarence/internal/verification/models"
	"clarence/pkg/platform/sentinel"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSession(code string, attempts int) *models.Session {
	return &models.Session{
		Phone:    "+15551230000",
		Code:     code,
		Attempts: attempts,
		Purpose:  models.PurposeRegistration,
	}
}

func TestInMemoryStore_Consume(t *testing.T) {
	ctx := context.Background()
	key := models.Key(models.PurposeRegistration, "sess-1")

	t.Run("unknown key", func(t *testing.T) {
		s := NewInMemoryStore()
		_, err := s.Consume(ctx, key, "123456", models.MaxAttempts)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("correct code deletes the session", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Save(ctx, key, newSession("123456", 0), time.Minute))

		got, err := s.Consume(ctx, key, "123456", models.MaxAttempts)
		require.NoError(t, err)
		assert.Equal(t, "+15551230000", got.Phone)

		_, err = s.Get(ctx, key)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("wrong code at attempts=2 persists attempts=3", func(t *testing.T) {
		s := NewInMemoryStore()
		require.NoError(t, s.Save(ctx, key, newSession("123456", 2), time.Minute))

		got, err := s.Consume(ctx, key, "000000", models.MaxAttempts)
		assert.ErrorIs(t, err, sentinel.ErrMismatch)
		assert.Equal(t, 3, got.Attempts)

		stored, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Attempts)

		// Even the right code is refused once attempts are spent.
		_, err = s.Consume(ctx, key, "123456", models.MaxAttempts)
		assert.ErrorIs(t, err, sentinel.ErrAttemptsExceeded)
		_, err = s.Get(ctx, key)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("failed attempt keeps the original deadline", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
		s := NewInMemoryStore(WithMemoryClock(clock.Now))
		require.NoError(t, s.Save(ctx, key, newSession("123456", 0), 10*time.Minute))

		clock.Advance(9 * time.Minute)
		_, err := s.Consume(ctx, key, "000000", models.MaxAttempts)
		require.ErrorIs(t, err, sentinel.ErrMismatch)

		clock.Advance(90 * time.Second)
		_, err = s.Consume(ctx, key, "123456", models.MaxAttempts)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		s := NewInMemoryStore()
		assert.ErrorIs(t, s.Save(ctx, key, newSession("1", 0), 0), sentinel.ErrInvalidState)
	})
}

func TestInMemoryStore_ConcurrentWrongCodesCountExactly(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	key := models.Key(models.PurposeRegistration, "race")
	require.NoError(t, s.Save(ctx, key, newSession("123456", 0), time.Minute))

	var mismatches, exceeded atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Consume(ctx, key, "999999", models.MaxAttempts)
			switch {
			case errors.Is(err, sentinel.ErrMismatch):
				mismatches.Add(1)
			case errors.Is(err, sentinel.ErrAttemptsExceeded):
				exceeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), mismatches.Load())
	assert.Equal(t, int32(1), exceeded.Load())
}
