//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	carriermodels "clarence/internal/carrier/models"
	carrierstore "clarence/internal/carrier/store"
	"clarence/internal/policy/models"
	"clarence/internal/policy/store"
	quotemodels "clarence/internal/quote/models"
	quotestore "clarence/internal/quote/store"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	quotes   *quotestore.PostgresStore
	carriers *carrierstore.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.quotes = quotestore.NewPostgres(s.postgres.DB)
	s.carriers = carrierstore.NewPostgres(s.postgres.DB)
	s.now = time.Now().UTC().Truncate(time.Millisecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"policies", "carrier_quotes", "quote_request_coverages", "quote_requests", "carriers", "users")
	s.Require().NoError(err)
}

// seedQuote inserts the carrier, request and quote a policy references.
func (s *PostgresStoreSuite) seedQuote() *carriermodels.CarrierQuote {
	ctx := context.Background()
	carrier := &carriermodels.Carrier{
		ID:                 id.NewCarrierID(),
		Code:               "acme-" + id.NewCarrierID().String()[:8],
		Name:               "Acme Mutual",
		IsActive:           true,
		APIBaseURL:         "http://carrier.test/acme",
		SupportsCommercial: true,
		SupportedCoverages: []id.CoverageType{id.CoverageGeneralLiability},
		HealthStatus:       carriermodels.HealthOperational,
		CreatedAt:          s.now,
		UpdatedAt:          s.now,
	}
	s.Require().NoError(s.carriers.Save(ctx, carrier))

	request := &quotemodels.QuoteRequest{
		ID:            id.NewQuoteRequestID(),
		SessionID:     "sess-" + id.NewQuoteRequestID().String()[:8],
		InsuranceType: id.InsuranceCommercial,
		RequestType:   quotemodels.RequestNewCoverage,
		Status:        quotemodels.StatusQuotesReady,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	}
	s.Require().NoError(s.quotes.Create(ctx, request))

	quote := &carriermodels.CarrierQuote{
		ID:             id.NewCarrierQuoteID(),
		QuoteRequestID: request.ID,
		CarrierID:      carrier.ID,
		CarrierCode:    carrier.Code,
		CarrierName:    carrier.Name,
		Status:         carriermodels.QuoteQuoted,
		CoverageType:   id.CoverageGeneralLiability,
		InsuranceType:  id.InsuranceCommercial,
		AnnualPremium:  1200,
		ValidUntil:     s.now.Add(24 * time.Hour),
		CreatedAt:      s.now,
	}
	s.Require().NoError(s.quotes.SaveCarrierQuote(ctx, quote))
	return quote
}

func (s *PostgresStoreSuite) newPolicy(q *carriermodels.CarrierQuote) *models.Policy {
	policyID := id.NewPolicyID()
	monthly := 100.0
	remaining := 12
	effective := s.now.Add(30 * 24 * time.Hour)
	expiration := effective.AddDate(1, 0, 0)
	return &models.Policy{
		ID:                policyID,
		PolicyNumber:      "POL-" + policyID.String()[:8],
		QuoteRequestID:    q.QuoteRequestID,
		CarrierQuoteID:    q.ID,
		CarrierID:         q.CarrierID,
		CarrierName:       q.CarrierName,
		InsuranceType:     q.InsuranceType,
		CoverageType:      q.CoverageType,
		Status:            models.StatusBound,
		CoverageLimits:    json.RawMessage(`{"per_occurrence": 1000000}`),
		AnnualPremium:     q.AnnualPremium,
		PaymentPlan:       models.PlanMonthly,
		MonthlyAmount:     &monthly,
		EffectiveDate:     &effective,
		ExpirationDate:    &expiration,
		BoundAt:           s.now,
		InsuredName:       "Harbor Bakery LLC",
		PaymentsRemaining: &remaining,
		AutoRenewal:       true,
		Documents:         []models.Document{{Type: "declarations", URL: "https://docs.test/dec.pdf"}},
		CreatedAt:         s.now,
		UpdatedAt:         s.now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	p := s.newPolicy(s.seedQuote())
	s.Require().NoError(s.store.Create(ctx, p))

	byID, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.PolicyNumber, byID.PolicyNumber)
	s.Require().NotNil(byID.MonthlyAmount)
	s.InDelta(100.0, *byID.MonthlyAmount, 0.001)
	s.Require().NotNil(byID.PaymentsRemaining)
	s.Equal(12, *byID.PaymentsRemaining)
	s.Len(byID.Documents, 1)
	s.JSONEq(`{"per_occurrence": 1000000}`, string(byID.CoverageLimits))

	byNumber, err := s.store.FindByNumber(ctx, p.PolicyNumber)
	s.Require().NoError(err)
	s.Equal(p.ID, byNumber.ID)

	byQuote, err := s.store.FindByCarrierQuote(ctx, p.CarrierQuoteID)
	s.Require().NoError(err)
	s.Equal(p.ID, byQuote.ID)
}

// TestConcurrentBindSameQuote verifies that the carrier quote uniqueness
// admits exactly one policy under concurrent inserts.
func (s *PostgresStoreSuite) TestConcurrentBindSameQuote() {
	ctx := context.Background()
	q := s.seedQuote()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, s.newPolicy(q))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")
}

func (s *PostgresStoreSuite) TestUpdateCancellation() {
	ctx := context.Background()
	p := s.newPolicy(s.seedQuote())
	s.Require().NoError(s.store.Create(ctx, p))

	cancelledAt := s.now.Add(time.Hour)
	p.Status = models.StatusCancelled
	p.CancelledAt = &cancelledAt
	p.CancellationReason = "closing business"
	p.NextPaymentDate = nil
	p.UpdatedAt = cancelledAt
	s.Require().NoError(s.store.Update(ctx, p))

	found, err := s.store.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCancelled, found.Status)
	s.Equal("closing business", found.CancellationReason)
	s.Require().NotNil(found.CancelledAt)
	s.True(cancelledAt.Equal(*found.CancelledAt))
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.NewPolicyID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByNumber(ctx, "POL-MISSING")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByCarrierQuote(ctx, id.NewCarrierQuoteID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Update(ctx, &models.Policy{ID: id.NewPolicyID(), Status: models.StatusCancelled})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
