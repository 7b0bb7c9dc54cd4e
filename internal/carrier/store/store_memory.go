// Package store persists carrier profiles.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"clarence/internal/carrier/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

// InMemoryStore keeps carriers in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	carriers map[id.CarrierID]*models.Carrier
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{carriers: make(map[id.CarrierID]*models.Carrier)}
}

// Save inserts or replaces a carrier. Codes are unique.
func (s *InMemoryStore) Save(_ context.Context, c *models.Carrier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for existingID, existing := range s.carriers {
		if existing.Code == c.Code && existingID != c.ID {
			return sentinel.ErrConflict
		}
	}
	s.carriers[c.ID] = c.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, carrierID id.CarrierID) (*models.Carrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carriers[carrierID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*models.Carrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.carriers {
		if c.Code == code {
			return c.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListActive returns active carriers ordered by name.
func (s *InMemoryStore) ListActive(_ context.Context) ([]*models.Carrier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Carrier, 0, len(s.carriers))
	for _, c := range s.carriers {
		if c.IsActive {
			out = append(out, c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Carrier) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *InMemoryStore) UpdateHealth(_ context.Context, carrierID id.CarrierID, status models.HealthStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carriers[carrierID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.HealthStatus = status
	c.LastHealthCheck = &at
	c.UpdatedAt = at
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carriers), nil
}
