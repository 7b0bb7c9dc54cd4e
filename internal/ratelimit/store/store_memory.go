package store

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count     int
	expiresAt time.Time
}

// InMemoryCounterStore is a mutex-guarded CounterStore for single-process runs.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]counter
	clock    func() time.Time
}

// NewInMemory builds a store; a nil clock uses time.Now.
func NewInMemory(clock func() time.Time) *InMemoryCounterStore {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryCounterStore{
		counters: make(map[string]counter),
		clock:    clock,
	}
}

func (s *InMemoryCounterStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = counter{expiresAt: now.Add(window)}
	}
	c.count++
	s.counters[key] = c
	return c.count, c.expiresAt.Sub(now), nil
}

func (s *InMemoryCounterStore) Get(_ context.Context, key string) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		delete(s.counters, key)
		return 0, 0, nil
	}
	return c.count, c.expiresAt.Sub(now), nil
}

func (s *InMemoryCounterStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}
