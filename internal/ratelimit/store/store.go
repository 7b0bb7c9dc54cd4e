// Package store holds fixed-window counters. The window starts at the first
// hit and is not extended by later hits.
package store

import (
	"context"
	"time"
)

// CounterStore is a keyed counter with expiry.
type CounterStore interface {
	// Increment adds one and returns the new count and the window's remaining lifetime.
	Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
	// Get returns the current count (zero when absent) and remaining lifetime.
	Get(ctx context.Context, key string) (int, time.Duration, error)
	Delete(ctx context.Context, key string) error
}
