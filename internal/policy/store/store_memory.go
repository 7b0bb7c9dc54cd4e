// Package store persists bound policies. Both implementations allow at most
// one policy per carrier quote.
package store

import (
	"context"
	"slices"
	"sync"

	"clarence/internal/policy/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[id.PolicyID]*models.Policy
	byQuote  map[id.CarrierQuoteID]id.PolicyID
	byNumber map[string]id.PolicyID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		policies: make(map[id.PolicyID]*models.Policy),
		byQuote:  make(map[id.CarrierQuoteID]id.PolicyID),
		byNumber: make(map[string]id.PolicyID),
	}
}

// Create stores p. A second policy for the same carrier quote or policy
// number yields ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policies[p.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byQuote[p.CarrierQuoteID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byNumber[p.PolicyNumber]; exists {
		return sentinel.ErrConflict
	}
	s.policies[p.ID] = p.Clone()
	s.byQuote[p.CarrierQuoteID] = p.ID
	s.byNumber[p.PolicyNumber] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, policyID id.PolicyID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) FindByNumber(_ context.Context, number string) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policyID, ok := s.byNumber[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.policies[policyID].Clone(), nil
}

func (s *InMemoryStore) FindByCarrierQuote(_ context.Context, quoteID id.CarrierQuoteID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policyID, ok := s.byQuote[quoteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.policies[policyID].Clone(), nil
}

// ListByUser returns the user's policies, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Policy
	for _, p := range s.policies {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Policy) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.policies[p.ID] = p.Clone()
	return nil
}
