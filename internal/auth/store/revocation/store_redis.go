package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces blacklisted refresh tokens.
const KeyPrefix = "blacklist:"

// RedisList is the shared blacklist used when several instances serve traffic.
type RedisList struct {
	client   *redis.Client
	duration prometheus.Observer
}

// RedisListOption configures a RedisList.
type RedisListOption func(*RedisList)

// WithLookupObserver records IsRevoked latency in milliseconds.
func WithLookupObserver(o prometheus.Observer) RedisListOption {
	return func(l *RedisList) {
		l.duration = o
	}
}

// NewRedis constructs a Redis-backed blacklist.
func NewRedis(client *redis.Client, opts ...RedisListOption) *RedisList {
	l := &RedisList{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Revoke marks jti as revoked for ttl using SET with expiry.
func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return l.client.Set(ctx, KeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti is blacklisted. Expired keys read as not revoked.
func (l *RedisList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if l.duration != nil {
		start := time.Now()
		defer func() {
			l.duration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}()
	}
	if jti == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, KeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeIfAbsent claims jti with SET NX, so expired keys can be claimed again.
func (l *RedisList) RevokeIfAbsent(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	return l.client.SetNX(ctx, KeyPrefix+jti, "1", ttl).Result()
}
