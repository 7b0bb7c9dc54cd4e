// Package service drives quote requests through their lifecycle: draft
// editing, coverage selection, submission and the background fan-out to
// carriers that collects normalized quotes.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clarence/internal/carrier/client"
	carriermodels "clarence/internal/carrier/models"
	"clarence/internal/quote/metrics"
	"clarence/internal/quote/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/events"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/requestcontext"
)

// Store persists requests, coverage selections and carrier quotes.
type Store interface {
	Create(ctx context.Context, q *models.QuoteRequest) error
	FindByID(ctx context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error)
	FindLatestBySession(ctx context.Context, sessionID string) (*models.QuoteRequest, error)
	Update(ctx context.Context, q *models.QuoteRequest) error
	ReplaceCoverages(ctx context.Context, requestID id.QuoteRequestID, coverages []models.Coverage) error
	ListCoverages(ctx context.Context, requestID id.QuoteRequestID) ([]models.Coverage, error)
	SaveCarrierQuote(ctx context.Context, q *carriermodels.CarrierQuote) error
	ListCarrierQuotes(ctx context.Context, requestID id.QuoteRequestID) ([]*carriermodels.CarrierQuote, error)
}

// Registry resolves carriers for a request and records breaker-driven
// health changes.
type Registry interface {
	FindEligible(ctx context.Context, insuranceType id.InsuranceType, requested []id.CoverageType) ([]*carriermodels.Carrier, error)
	SetHealth(ctx context.Context, carrierID id.CarrierID, status carriermodels.HealthStatus, at time.Time) error
}

// CarrierClient issues single-coverage quote calls.
type CarrierClient interface {
	Quote(ctx context.Context, carrier *carriermodels.Carrier, req *client.QuoteAPIRequest) (*client.QuoteResult, error)
}

// Queue accepts submitted requests for background processing without
// blocking the caller.
type Queue interface {
	Enqueue(requestID id.QuoteRequestID) error
}

// estimatedProcessingTime is the completion hint returned on submit.
const estimatedProcessingTime = 30 * time.Second

const (
	notFoundMessage         = "Quote request not found"
	alreadySubmittedMessage = "Quote request already submitted"
)

type Service struct {
	store     Store
	queue     Queue
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, queue Queue, opts ...Option) (*Service, error) {
	if store == nil || queue == nil {
		return nil, errors.New("quote service requires a store and a queue")
	}
	s := &Service{store: store, queue: queue, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create starts a draft request.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.QuoteRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	q := &models.QuoteRequest{
		ID:                 id.NewQuoteRequestID(),
		SessionID:          req.SessionID,
		UserID:             req.UserID,
		InsuranceType:      req.InsuranceType,
		RequestType:        req.RequestType,
		Status:             models.StatusDraft,
		AdditionalComments: req.AdditionalComments,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Business != nil {
		q.Business = *req.Business
	}
	if req.Address != nil {
		q.Address = *req.Address
	}
	if req.Contact != nil {
		q.Contact = *req.Contact
	}
	if req.Financials != nil {
		q.Financials = *req.Financials
	}
	if err := s.store.Create(ctx, q); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create quote request")
	}
	s.logger.InfoContext(ctx, "quote request created",
		"quote_request_id", q.ID.String(),
		"session_id", q.SessionID,
		"insurance_type", string(q.InsuranceType),
	)
	return q, nil
}

// Update patches a draft request.
func (s *Service) Update(ctx context.Context, requestID id.QuoteRequestID, req *models.UpdateRequest) (*models.QuoteRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	q, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusDraft {
		return nil, dErrors.New(dErrors.CodeConflict, "Quote request can only be changed while in draft")
	}
	req.Apply(q)
	q.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, q); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quote request")
	}
	return q, nil
}

// SelectCoverages replaces the request's selected coverage set.
func (s *Service) SelectCoverages(ctx context.Context, requestID id.QuoteRequestID, req *models.SelectCoveragesRequest) ([]models.Coverage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	q, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusDraft {
		return nil, dErrors.New(dErrors.CodeConflict, "Quote request can only be changed while in draft")
	}
	now := requestcontext.Now(ctx)
	coverages := make([]models.Coverage, len(req.SelectedCoverages))
	for i, c := range req.SelectedCoverages {
		coverages[i] = models.Coverage{
			QuoteRequestID: requestID,
			CoverageType:   c,
			IsSelected:     true,
			CreatedAt:      now,
		}
	}
	if err := s.store.ReplaceCoverages(ctx, requestID, coverages); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, notFoundMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to select coverages")
	}
	return coverages, nil
}

// Submit validates a draft, marks it submitted and hands it to the background
// queue. It returns without waiting for any carrier.
//
// The draft check and the status write are not atomic: two submits racing
// before the first write lands can both pass the guard. The single queued
// job per request that wins the processing transition limits the damage.
func (s *Service) Submit(ctx context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error) {
	q, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusDraft {
		return nil, dErrors.New(dErrors.CodeConflict, alreadySubmittedMessage)
	}
	if missing := q.MissingFields(); len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "Missing required fields: "+strings.Join(missing, ", "))
	}
	coverages, err := s.store.ListCoverages(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load coverages")
	}
	if len(models.SelectedTypes(coverages)) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "No coverages selected")
	}

	now := requestcontext.Now(ctx)
	eta := now.Add(estimatedProcessingTime)
	q.Status = models.StatusSubmitted
	q.SubmittedAt = &now
	q.EstimatedCompletionTime = &eta
	q.UpdatedAt = now
	if err := s.store.Update(ctx, q); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit quote request")
	}

	if err := s.queue.Enqueue(q.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue quote request",
			"quote_request_id", q.ID.String(),
			"error", err,
		)
		q.Status = models.StatusDraft
		q.SubmittedAt = nil
		q.EstimatedCompletionTime = nil
		if revertErr := s.store.Update(requestcontext.Detach(ctx), q); revertErr != nil {
			s.logger.ErrorContext(ctx, "failed to revert unqueued quote request", "error", revertErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "quote processing unavailable")
	}

	s.metrics.IncrementSubmissions()
	s.emit(ctx, events.QuoteRequestSubmitted, q.ID.String(), map[string]string{
		"coverages": strings.Join(coverageStrings(models.SelectedTypes(coverages)), ","),
	})
	s.logger.InfoContext(ctx, "quote request submitted",
		"quote_request_id", q.ID.String(),
		"coverages", len(coverages),
	)
	return q, nil
}

// Get returns the request with its coverages and collected quotes.
func (s *Service) Get(ctx context.Context, requestID id.QuoteRequestID) (*models.Detail, error) {
	q, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	coverages, err := s.store.ListCoverages(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load coverages")
	}
	quotes, err := s.store.ListCarrierQuotes(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quotes")
	}
	if coverages == nil {
		coverages = []models.Coverage{}
	}
	if quotes == nil {
		quotes = []*carriermodels.CarrierQuote{}
	}
	return &models.Detail{QuoteRequest: q, Coverages: coverages, Quotes: quotes}, nil
}

// GetBySession returns the session's most recent request.
func (s *Service) GetBySession(ctx context.Context, sessionID string) (*models.QuoteRequest, error) {
	q, err := s.store.FindLatestBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, notFoundMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quote request")
	}
	return q, nil
}

// MarkPurchased records that one of the request's quotes was bound.
func (s *Service) MarkPurchased(ctx context.Context, requestID id.QuoteRequestID) error {
	q, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if q.Status == models.StatusPurchased {
		return nil
	}
	if !q.Status.CanTransitionTo(models.StatusPurchased) {
		return dErrors.Newf(dErrors.CodeConflict, "quote request in status %s cannot be purchased", q.Status)
	}
	q.Status = models.StatusPurchased
	q.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, q); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update quote request")
	}
	return nil
}

func (s *Service) load(ctx context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error) {
	q, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, notFoundMessage)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quote request")
	}
	return q, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, subject string, attrs map[string]string) {
	emit(ctx, s.publisher, s.logger, t, subject, attrs)
}

func emit(ctx context.Context, publisher events.Publisher, logger *slog.Logger, t events.Type, subject string, attrs map[string]string) {
	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, events.Event{
		Type:       t,
		Timestamp:  requestcontext.Now(ctx),
		Subject:    subject,
		RequestID:  requestcontext.RequestID(ctx),
		Attributes: attrs,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to emit event", "type", string(t), "error", err)
	}
}

func coverageStrings(in []id.CoverageType) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}
