// Package store persists verification sessions. Every implementation makes
// Consume an atomic read-modify-write on the attempt counter.
package store

import (
	"context"
	"crypto/subtle"
	"time"

	"clarence/internal/verification/models"
)

// Store is the keyed, TTL-bound session store.
//
// Consume outcomes:
//   - sentinel.ErrNotFound: no session under key, or it has lapsed
//   - sentinel.ErrAttemptsExceeded: attempts were already at maxAttempts; the session is deleted
//   - sentinel.ErrMismatch: wrong code; attempts incremented and persisted, returned session reflects it
//   - nil: code matched; the session is deleted and returned
type Store interface {
	Save(ctx context.Context, key string, session *models.Session, ttl time.Duration) error
	Consume(ctx context.Context, key, candidate string, maxAttempts int) (*models.Session, error)
	Get(ctx context.Context, key string) (*models.Session, error)
	Delete(ctx context.Context, key string) error
}

// Clock is injected for testability.
type Clock func() time.Time

func codesEqual(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
