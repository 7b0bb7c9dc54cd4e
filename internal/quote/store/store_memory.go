// Package store persists quote requests, their coverage selections and the
// carrier quotes collected for them.
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	carriermodels "clarence/internal/carrier/models"
	"clarence/internal/quote/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

type quoteKey struct {
	request  id.QuoteRequestID
	carrier  id.CarrierID
	coverage id.CoverageType
}

// InMemoryStore keeps requests, coverages and carrier quotes in maps guarded
// by one RWMutex.
type InMemoryStore struct {
	mu        sync.RWMutex
	requests  map[id.QuoteRequestID]*models.QuoteRequest
	coverages map[id.QuoteRequestID][]models.Coverage
	quotes    map[id.CarrierQuoteID]*carriermodels.CarrierQuote
	triples   map[quoteKey]id.CarrierQuoteID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		requests:  make(map[id.QuoteRequestID]*models.QuoteRequest),
		coverages: make(map[id.QuoteRequestID][]models.Coverage),
		quotes:    make(map[id.CarrierQuoteID]*carriermodels.CarrierQuote),
		triples:   make(map[quoteKey]id.CarrierQuoteID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, q *models.QuoteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[q.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[q.ID] = q.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return q.Clone(), nil
}

// FindLatestBySession returns the most recently created request for a session.
func (s *InMemoryStore) FindLatestBySession(_ context.Context, sessionID string) (*models.QuoteRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.QuoteRequest
	for _, q := range s.requests {
		if q.SessionID != sessionID {
			continue
		}
		if latest == nil || q.CreatedAt.After(latest.CreatedAt) {
			latest = q
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest.Clone(), nil
}

// Update replaces the stored request.
func (s *InMemoryStore) Update(_ context.Context, q *models.QuoteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[q.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[q.ID] = q.Clone()
	return nil
}

// ReplaceCoverages deletes every coverage row of the request and inserts the
// given set.
func (s *InMemoryStore) ReplaceCoverages(_ context.Context, requestID id.QuoteRequestID, coverages []models.Coverage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return sentinel.ErrNotFound
	}
	s.coverages[requestID] = slices.Clone(coverages)
	return nil
}

func (s *InMemoryStore) ListCoverages(_ context.Context, requestID id.QuoteRequestID) ([]models.Coverage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.coverages[requestID]), nil
}

// SaveCarrierQuote appends a quote. A second quote for the same request,
// carrier and coverage yields ErrConflict.
func (s *InMemoryStore) SaveCarrierQuote(_ context.Context, q *carriermodels.CarrierQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := quoteKey{q.QuoteRequestID, q.CarrierID, q.CoverageType}
	if _, exists := s.triples[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.quotes[q.ID]; exists {
		return sentinel.ErrConflict
	}
	s.quotes[q.ID] = q.Clone()
	s.triples[key] = q.ID
	return nil
}

func (s *InMemoryStore) FindCarrierQuote(_ context.Context, quoteID id.CarrierQuoteID) (*carriermodels.CarrierQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[quoteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return q.Clone(), nil
}

// ListCarrierQuotes returns the request's quotes, cheapest annual premium first.
func (s *InMemoryStore) ListCarrierQuotes(_ context.Context, requestID id.QuoteRequestID) ([]*carriermodels.CarrierQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*carriermodels.CarrierQuote
	for _, q := range s.quotes {
		if q.QuoteRequestID == requestID {
			out = append(out, q.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *carriermodels.CarrierQuote) int {
		if c := cmp.Compare(a.AnnualPremium, b.AnnualPremium); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
