// Package user stores phone-registered accounts.
package user

import (
	"context"
	"sync"
	"time"

	"clarence/internal/auth/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in process memory, indexed by ID and phone.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byPhone map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byPhone: make(map[string]id.UserID),
	}
}

// Create inserts user. A phone that is already registered yields ErrConflict.
func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byPhone[user.Phone]; taken {
		return sentinel.ErrConflict
	}
	clone := *user
	s.users[user.ID] = &clone
	s.byPhone[user.Phone] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemoryUserStore) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byPhone[phone]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.users[userID]
	return &clone, nil
}

func (s *InMemoryUserStore) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPhone[phone]
	return ok, nil
}

func (s *InMemoryUserStore) UpdateLastLogin(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	return nil
}

func (s *InMemoryUserStore) UpdatePassword(_ context.Context, userID id.UserID, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}
