package store

import (
	"context"
	"sync"
	"time"

	"clarence/internal/verification/models"
	"clarence/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a map guarded by a mutex.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	clock    Clock
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithMemoryClock overrides time.Now.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]models.Session),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, key string, session *models.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return sentinel.ErrInvalidState
	}
	cp := *session
	cp.ExpiresAt = s.clock().Add(ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = cp
	return nil
}

// lookup must be called with mu held.
func (s *InMemoryStore) lookup(key string) (models.Session, bool) {
	session, ok := s.sessions[key]
	if !ok {
		return models.Session{}, false
	}
	if !s.clock().Before(session.ExpiresAt) {
		delete(s.sessions, key)
		return models.Session{}, false
	}
	return session, true
}

func (s *InMemoryStore) Consume(_ context.Context, key, candidate string, maxAttempts int) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.lookup(key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if session.Attempts >= maxAttempts {
		delete(s.sessions, key)
		return &session, sentinel.ErrAttemptsExceeded
	}
	if !codesEqual(session.Code, candidate) {
		// ExpiresAt is untouched, so the session keeps its remaining lifetime.
		session.Attempts++
		s.sessions[key] = session
		return &session, sentinel.ErrMismatch
	}
	delete(s.sessions, key)
	return &session, nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.lookup(key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
