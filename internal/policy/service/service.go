// Package service binds accepted carrier quotes into policies and manages
// the policies afterwards.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"clarence/internal/carrier/client"
	carriermodels "clarence/internal/carrier/models"
	"clarence/internal/policy/models"
	quotemodels "clarence/internal/quote/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/events"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/requestcontext"
)

// Store persists policies.
type Store interface {
	Create(ctx context.Context, p *models.Policy) error
	FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	FindByNumber(ctx context.Context, number string) (*models.Policy, error)
	FindByCarrierQuote(ctx context.Context, quoteID id.CarrierQuoteID) (*models.Policy, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Policy, error)
	Update(ctx context.Context, p *models.Policy) error
}

// Quotes reads the quote being bound and the request it answered.
type Quotes interface {
	FindCarrierQuote(ctx context.Context, quoteID id.CarrierQuoteID) (*carriermodels.CarrierQuote, error)
	FindByID(ctx context.Context, requestID id.QuoteRequestID) (*quotemodels.QuoteRequest, error)
}

// Carriers resolves the carrier that issued a quote.
type Carriers interface {
	Get(ctx context.Context, carrierID id.CarrierID) (*carriermodels.Carrier, error)
}

// Binder calls a carrier's bind endpoint.
type Binder interface {
	Bind(ctx context.Context, carrier *carriermodels.Carrier, req *client.BindAPIRequest) (*client.BindAPIResponse, json.RawMessage, error)
}

// Purchases records that a request's quote was bound.
type Purchases interface {
	MarkPurchased(ctx context.Context, requestID id.QuoteRequestID) error
}

const (
	expiringWindow    = 60 * 24 * time.Hour
	bindEffectiveLead = 30 * 24 * time.Hour
	dateLayout        = "2006-01-02"
)

type Service struct {
	store     Store
	quotes    Quotes
	carriers  Carriers
	binder    Binder
	purchases Purchases
	publisher events.Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[id.CarrierQuoteID]struct{}
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithPurchases marks the originating request purchased after a bind.
func WithPurchases(p Purchases) Option {
	return func(s *Service) {
		s.purchases = p
	}
}

func New(store Store, quotes Quotes, carriers Carriers, binder Binder, opts ...Option) (*Service, error) {
	if store == nil || quotes == nil || carriers == nil || binder == nil {
		return nil, errors.New("policy service requires a store, quotes, carriers and a binder")
	}
	s := &Service{
		store:    store,
		quotes:   quotes,
		carriers: carriers,
		binder:   binder,
		logger:   slog.Default(),
		inflight: make(map[id.CarrierQuoteID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Bind converts one quoted carrier quote into a policy. A quote binds at
// most once: concurrent attempts in this process are refused up front and
// the store's uniqueness on the carrier quote catches the rest.
func (s *Service) Bind(ctx context.Context, req *models.BindRequest) (*models.Policy, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.acquire(req.CarrierQuoteID) {
		return nil, dErrors.New(dErrors.CodeConflict, "Quote is already being bound")
	}
	defer s.release(req.CarrierQuoteID)

	now := requestcontext.Now(ctx)
	quote, err := s.quotes.FindCarrierQuote(ctx, req.CarrierQuoteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Quote not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quote")
	}
	if quote.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeExpired, "Quote has expired")
	}
	if quote.Status != carriermodels.QuoteQuoted {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Quote cannot be bound")
	}
	if _, err := s.store.FindByCarrierQuote(ctx, quote.ID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "Quote already bound")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing policy")
	}

	request, err := s.quotes.FindByID(ctx, quote.QuoteRequestID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quote request")
	}
	carrier, err := s.carriers.Get(ctx, quote.CarrierID)
	if err != nil {
		return nil, err
	}

	bindReq := s.buildBindRequest(ctx, quote, request, req, now)
	resp, raw, err := s.binder.Bind(ctx, carrier, bindReq)
	if err != nil {
		s.logger.ErrorContext(ctx, "carrier bind call failed",
			"carrier", carrier.Code,
			"carrier_quote_id", quote.ID.String(),
			"category", string(client.CategoryOf(err)),
			"error", err,
		)
		var ce *client.CarrierError
		if errors.As(err, &ce) && ce.Category == client.ErrorRejected {
			return nil, dErrors.Wrap(err, dErrors.CodeBindRejected, rejectionMessage(ce.Message))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "carrier bind failed")
	}
	if !resp.IsBound() {
		s.logger.WarnContext(ctx, "carrier declined bind",
			"carrier", carrier.Code,
			"carrier_quote_id", quote.ID.String(),
			"status", resp.Bound().Status,
		)
		return nil, dErrors.New(dErrors.CodeBindRejected, rejectionMessage(resp.ErrorMessage))
	}

	policy := newPolicy(quote, carrier, request, req, resp, raw, bindReq.EffectiveDate, now)
	if err := s.store.Create(ctx, policy); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "Quote already bound")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save policy")
	}

	if s.purchases != nil {
		if err := s.purchases.MarkPurchased(ctx, quote.QuoteRequestID); err != nil {
			s.logger.WarnContext(ctx, "failed to mark quote request purchased",
				"quote_request_id", quote.QuoteRequestID.String(),
				"error", err,
			)
		}
	}
	s.emit(ctx, events.PolicyBound, policy.ID.String(), map[string]string{
		"policy_number":    policy.PolicyNumber,
		"carrier":          carrier.Code,
		"carrier_quote_id": quote.ID.String(),
		"payment_plan":     string(policy.PaymentPlan),
	})
	s.logger.InfoContext(ctx, "policy bound",
		"policy_id", policy.ID.String(),
		"policy_number", policy.PolicyNumber,
		"carrier", carrier.Code,
	)
	return policy, nil
}

func (s *Service) buildBindRequest(ctx context.Context, quote *carriermodels.CarrierQuote, request *quotemodels.QuoteRequest, req *models.BindRequest, now time.Time) *client.BindAPIRequest {
	effective := now.UTC().Add(bindEffectiveLead)
	if quote.EffectiveDate != nil && quote.EffectiveDate.After(now) {
		effective = quote.EffectiveDate.UTC()
	}
	out := &client.BindAPIRequest{
		QuoteID:       quote.CarrierQuoteRef,
		EffectiveDate: effective.Format(dateLayout),
		PaymentPlan:   string(req.PaymentPlan),
		PaymentInfo: client.PaymentInfo{
			Method: "credit_card",
			Token:  req.PaymentMethodRef,
		},
		Signature: client.Signature{
			SignedAt:  now.UTC().Format(time.RFC3339),
			IPAddress: requestcontext.ClientIP(ctx),
		},
	}
	if request != nil {
		out.PaymentInfo.BillingAddress = client.Address{
			Street: request.Address.Street,
			City:   request.Address.City,
			State:  request.Address.State,
			Zip:    request.Address.Zip,
		}
		out.InsuredInfo.PrimaryContact = client.ContactInfo{
			FirstName: request.Contact.FirstName,
			LastName:  request.Contact.LastName,
			Email:     request.Contact.Email,
			Phone:     request.Contact.Phone,
		}
		out.Signature.FullName = request.Contact.FullName()
	}
	return out
}

func newPolicy(quote *carriermodels.CarrierQuote, carrier *carriermodels.Carrier, request *quotemodels.QuoteRequest,
	req *models.BindRequest, resp *client.BindAPIResponse, raw json.RawMessage, requestedEffective string, now time.Time,
) *models.Policy {
	bound := resp.Bound()
	policyID := id.NewPolicyID()

	effective := parseDate(bound.EffectiveDate)
	if effective == nil {
		effective = quote.EffectiveDate
	}
	if effective == nil {
		effective = parseDate(requestedEffective)
	}
	expiration := parseDate(bound.ExpirationDate)
	if expiration == nil {
		expiration = quote.ExpirationDate
	}

	p := &models.Policy{
		ID:                policyID,
		PolicyNumber:      bound.PolicyNumber,
		UserID:            req.UserID,
		QuoteRequestID:    quote.QuoteRequestID,
		CarrierQuoteID:    quote.ID,
		CarrierID:         carrier.ID,
		CarrierName:       carrier.Name,
		CarrierPolicyID:   bound.PolicyID,
		CarrierBindID:     resp.BindID,
		InsuranceType:     quote.InsuranceType,
		CoverageType:      quote.CoverageType,
		Status:            models.StatusBound,
		CoverageLimits:    quote.CoverageLimits,
		Deductible:        quote.Deductible,
		AnnualPremium:     quote.AnnualPremium,
		PaymentPlan:       req.PaymentPlan,
		MonthlyAmount:     req.PaymentPlan.MonthlyAmount(quote.MonthlyPremium, quote.AnnualPremium),
		EffectiveDate:     effective,
		ExpirationDate:    expiration,
		BoundAt:           now,
		InsuredName:       "Unknown",
		InsuredAddress:    "Address not available",
		PaymentsRemaining: req.PaymentPlan.PaymentsRemaining(),
		AutoRenewal:       req.AutoRenews(),
		Documents:         make([]models.Document, 0, len(bound.Documents)),
		CarrierContact:    bound.CarrierContact,
		CarrierPolicyData: raw,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if p.PolicyNumber == "" {
		p.PolicyNumber = "POL-" + strings.ToUpper(strings.ReplaceAll(policyID.String(), "-", "")[:12])
	}
	if p.InsuranceType == "" {
		p.InsuranceType = id.InsuranceCommercial
	}
	if request != nil {
		if name := strings.TrimSpace(request.Business.LegalName); name != "" {
			p.InsuredName = name
		}
		p.InsuredAddress = request.Address.Line()
	}
	if effective != nil {
		due := effective.Add(models.FirstPaymentGrace)
		next := due
		p.FirstPaymentDue = &due
		p.NextPaymentDate = &next
	}
	for _, d := range bound.Documents {
		p.Documents = append(p.Documents, models.Document{Type: d.Type, URL: d.URL})
	}
	return p
}

// Get returns one policy.
func (s *Service) Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	p, err := s.store.FindByID(ctx, policyID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return p, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*models.Policy, error) {
	p, err := s.store.FindByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, translateNotFound(err)
	}
	return p, nil
}

// ListForUser returns every policy of the user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Policy, error) {
	policies, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	if policies == nil {
		policies = []*models.Policy{}
	}
	return policies, nil
}

// ListActive returns the user's in-force policies, soonest expiry first.
func (s *Service) ListActive(ctx context.Context, userID id.UserID) ([]*models.Policy, error) {
	return s.filter(ctx, userID, func(p *models.Policy) bool {
		return p.Status.InForce()
	})
}

// ListExpiringSoon returns in-force policies expiring within sixty days.
func (s *Service) ListExpiringSoon(ctx context.Context, userID id.UserID) ([]*models.Policy, error) {
	now := requestcontext.Now(ctx)
	return s.filter(ctx, userID, func(p *models.Policy) bool {
		return p.ExpiresWithin(now, expiringWindow)
	})
}

func (s *Service) filter(ctx context.Context, userID id.UserID, keep func(*models.Policy) bool) ([]*models.Policy, error) {
	all, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []*models.Policy{}
	for _, p := range all {
		if keep(p) {
			out = append(out, p)
		}
	}
	sortByExpiry(out)
	return out, nil
}

// Cancel ends a policy.
func (s *Service) Cancel(ctx context.Context, policyID id.PolicyID, reason string) (*models.Policy, error) {
	p, err := s.store.FindByID(ctx, policyID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if p.Status == models.StatusCancelled {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Policy already cancelled")
	}
	now := requestcontext.Now(ctx)
	p.Status = models.StatusCancelled
	p.CancelledAt = &now
	p.CancellationReason = strings.TrimSpace(reason)
	p.NextPaymentDate = nil
	p.UpdatedAt = now
	if err := s.store.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel policy")
	}
	s.emit(ctx, events.PolicyCancelled, p.ID.String(), map[string]string{
		"policy_number": p.PolicyNumber,
		"reason":        p.CancellationReason,
	})
	s.logger.InfoContext(ctx, "policy cancelled",
		"policy_id", p.ID.String(),
		"policy_number", p.PolicyNumber,
	)
	return p, nil
}

func (s *Service) acquire(quoteID id.CarrierQuoteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[quoteID]; busy {
		return false
	}
	s.inflight[quoteID] = struct{}{}
	return true
}

func (s *Service) release(quoteID id.CarrierQuoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, quoteID)
}

func (s *Service) emit(ctx context.Context, t events.Type, subject string, attrs map[string]string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Emit(ctx, events.Event{
		Type:       t,
		Timestamp:  requestcontext.Now(ctx),
		Subject:    subject,
		RequestID:  requestcontext.RequestID(ctx),
		Attributes: attrs,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit event", "type", string(t), "error", err)
	}
}

func translateNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "Policy not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
}

func rejectionMessage(msg string) string {
	if msg = strings.TrimSpace(msg); msg != "" {
		return msg
	}
	return "Failed to bind policy"
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

func sortByExpiry(policies []*models.Policy) {
	slices.SortStableFunc(policies, func(a, b *models.Policy) int {
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate == nil:
			return 0
		case a.ExpirationDate == nil:
			return 1
		case b.ExpirationDate == nil:
			return -1
		}
		return a.ExpirationDate.Compare(*b.ExpirationDate)
	})
}
