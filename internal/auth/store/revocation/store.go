// Package revocation holds the refresh-token blacklist. Entries are keyed by
// the token's jti and expire with the token they block.
package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clarence/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

// List is the blacklist contract shared by all backends.
type List interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeIfAbsent blacklists jti unless a live entry exists, and reports
	// whether this call placed it. Exactly one concurrent caller wins.
	RevokeIfAbsent(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// validateTTL rejects entries that would lapse before the refresh token they
// block.
func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("revocation ttl %s: %w", ttl, sentinel.ErrInvalidState)
	}
	return nil
}

// InMemoryList is a process-local List.
type InMemoryList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	clock   Clock
}

// NewInMemory constructs an InMemoryList. A nil clock uses time.Now.
func NewInMemory(clock Clock) *InMemoryList {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryList{entries: make(map[string]time.Time), clock: clock}
}

func (l *InMemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[jti] = l.clock().Add(ttl)
	return nil
}

func (l *InMemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiresAt, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if !l.clock().Before(expiresAt) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}

func (l *InMemoryList) RevokeIfAbsent(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if expiresAt, ok := l.entries[jti]; ok && now.Before(expiresAt) {
		return false, nil
	}
	l.entries[jti] = now.Add(ttl)
	return true, nil
}
