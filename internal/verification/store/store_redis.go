package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clarence/internal/verification/models"
	"clarence/pkg/platform/sentinel"
)

const maxTxRetries = 4

// RedisStore keeps sessions as JSON strings with a native Redis TTL.
// Consume runs under WATCH so concurrent verifies of one session serialize.
type RedisStore struct {
	client *redis.Client
	clock  Clock
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock overrides time.Now.
func WithRedisClock(clock Clock) RedisOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Save(ctx context.Context, key string, session *models.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return sentinel.ErrInvalidState
	}
	cp := *session
	cp.ExpiresAt = s.clock().Add(ttl)
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode verification session: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("save verification session: %w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, key, candidate string, maxAttempts int) (*models.Session, error) {
	for range maxTxRetries {
		var result *models.Session

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			session, err := readSession(ctx, tx, key)
			if err != nil {
				return err
			}
			result = session

			if session.Attempts >= maxAttempts {
				if err := deleteInTx(ctx, tx, key); err != nil {
					return err
				}
				return sentinel.ErrAttemptsExceeded
			}

			if !codesEqual(session.Code, candidate) {
				session.Attempts++
				remaining := session.ExpiresAt.Sub(s.clock())
				if remaining <= 0 {
					if err := deleteInTx(ctx, tx, key); err != nil {
						return err
					}
					result = nil
					return sentinel.ErrNotFound
				}
				data, err := json.Marshal(session)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, data, remaining)
					return nil
				})
				if err != nil {
					return err
				}
				return sentinel.ErrMismatch
			}

			return deleteInTx(ctx, tx, key)
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, err
		case errors.Is(err, sentinel.ErrAttemptsExceeded), errors.Is(err, sentinel.ErrMismatch):
			return result, err
		default:
			return nil, fmt.Errorf("consume verification session: %w: %v", sentinel.ErrUnavailable, err)
		}
	}
	return nil, fmt.Errorf("consume verification session: %w: too much contention", sentinel.ErrUnavailable)
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.Session, error) {
	session, err := readSession(ctx, s.client, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get verification session: %w: %v", sentinel.ErrUnavailable, err)
	}
	return session, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete verification session: %w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readSession(ctx context.Context, c stringGetter, key string) (*models.Session, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode verification session: %w", err)
	}
	return &session, nil
}

func deleteInTx(ctx context.Context, tx *redis.Tx, key string) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		return nil
	})
	return err
}
