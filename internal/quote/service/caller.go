package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"clarence/internal/carrier/client"
	carriermodels "clarence/internal/carrier/models"
	"clarence/internal/quote/models"
	id "clarence/pkg/domain"
)

// QuoteSink persists normalized carrier quotes.
type QuoteSink interface {
	SaveCarrierQuote(ctx context.Context, q *carriermodels.CarrierQuote) error
}

const (
	effectiveDateLead  = 30 * 24 * time.Hour
	defaultQuoteWindow = 30 * 24 * time.Hour
	dateLayout         = "2006-01-02"
)

// Caller performs one carrier-coverage quote call and records the result.
type Caller struct {
	client CarrierClient
	sink   QuoteSink
	now    func() time.Time
	logger *slog.Logger
}

func NewCaller(c CarrierClient, sink QuoteSink, now func() time.Time, logger *slog.Logger) *Caller {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{client: c, sink: sink, now: now, logger: logger}
}

// Call quotes one coverage with one carrier. Any failure means the carrier
// contributes nothing for that coverage; no row is written.
func (c *Caller) Call(ctx context.Context, req *models.QuoteRequest, carrier *carriermodels.Carrier, coverage id.CoverageType) (*carriermodels.CarrierQuote, error) {
	payload := c.buildPayload(req, coverage)
	result, err := c.client.Quote(ctx, carrier, payload)
	if err != nil {
		return nil, err
	}
	quote, err := c.normalize(req, carrier, coverage, result)
	if err != nil {
		return nil, err
	}
	if err := c.sink.SaveCarrierQuote(ctx, quote); err != nil {
		return nil, fmt.Errorf("save carrier quote: %w", err)
	}
	return quote, nil
}

func (c *Caller) buildPayload(req *models.QuoteRequest, coverage id.CoverageType) *client.QuoteAPIRequest {
	defaults := defaultsFor(coverage)
	revenue := req.Financials.Revenue
	if revenue == 0 {
		revenue = req.Financials.RevenueEstimate
	}
	return &client.QuoteAPIRequest{
		QuoteRequestID: req.ID.String(),
		InsuranceType:  string(req.InsuranceType),
		BusinessInfo: client.BusinessInfo{
			LegalName:    req.Business.LegalName,
			Industry:     req.Business.Industry,
			IndustryCode: req.Business.IndustryCode,
			YearStarted:  req.Business.YearStarted,
			Address: client.Address{
				Street: req.Address.Street,
				City:   req.Address.City,
				State:  req.Address.State,
				Zip:    req.Address.Zip,
			},
			FinancialInfo: client.FinancialInfo{
				AnnualRevenue:     revenue,
				AnnualPayroll:     req.Financials.TotalPayroll,
				FullTimeEmployees: req.Financials.FullTimeEmployees,
			},
			ContactInfo: client.ContactInfo{
				FirstName: req.Contact.FirstName,
				LastName:  req.Contact.LastName,
				Email:     req.Contact.Email,
				Phone:     req.Contact.Phone,
			},
		},
		CoverageRequests: []client.CoverageRequest{{
			CoverageType:        string(coverage),
			RequestedLimits:     defaults.limits,
			RequestedDeductible: defaults.deductible,
			EffectiveDate:       c.now().UTC().Add(effectiveDateLead).Format(dateLayout),
		}},
		AdditionalData: client.AdditionalData{
			PriorCoverage:   false,
			ClaimsHistory:   []string{},
			CreditScoreTier: "good",
		},
	}
}

func (c *Caller) normalize(req *models.QuoteRequest, carrier *carriermodels.Carrier, coverage id.CoverageType, result *client.QuoteResult) (*carriermodels.CarrierQuote, error) {
	resp := result.Response
	entry := resp.Quotes[0]
	now := c.now()

	badData := func(field string, err error) error {
		return &client.CarrierError{
			Category:   client.ErrorBadData,
			Carrier:    carrier.Code,
			Operation:  "quote",
			Message:    "invalid " + field,
			Underlying: err,
		}
	}

	effective, err := parseDate(entry.EffectiveDate)
	if err != nil {
		return nil, badData("effective_date", err)
	}
	expiration, err := parseDate(entry.ExpirationDate)
	if err != nil {
		return nil, badData("expiration_date", err)
	}
	validUntil := now.Add(defaultQuoteWindow)
	if resp.ValidUntil != "" {
		v, err := parseDate(resp.ValidUntil)
		if err != nil {
			return nil, badData("valid_until", err)
		}
		validUntil = *v
	}

	q := &carriermodels.CarrierQuote{
		ID:                    id.NewCarrierQuoteID(),
		QuoteRequestID:        req.ID,
		CarrierID:             carrier.ID,
		CarrierCode:           carrier.Code,
		CarrierName:           carrier.Name,
		CarrierQuoteRef:       entry.QuoteID,
		Status:                carriermodels.ParseQuoteStatus(entry.Status),
		CoverageType:          coverage,
		InsuranceType:         req.InsuranceType,
		AnnualPremium:         entry.Premium.Annual,
		MonthlyPremium:        entry.Premium.Monthly,
		QuarterlyPremium:      entry.Premium.Quarterly,
		PaymentInFullDiscount: entry.Premium.PaymentInFullDiscount,
		CoverageLimits:        nonEmptyRaw(entry.CoverageLimits),
		Deductible:            entry.Deductible,
		EffectiveDate:         effective,
		ExpirationDate:        expiration,
		PolicyForm:            entry.PolicyForm,
		Highlights:            entry.Highlights,
		Exclusions:            entry.Exclusions,
		OptionalCoverages:     nonEmptyRaw(entry.OptionalCoverages),
		UnderwritingNotes:     nonEmptyRaw(entry.UnderwritingNotes),
		DeclineReason:         entry.DeclineReason,
		DeclineCode:           entry.DeclineCode,
		ValidUntil:            validUntil,
		Cached:                resp.Cached,
		ResponseTimeMs:        result.Latency.Milliseconds(),
		RawCarrierResponse:    result.Raw,
		CreatedAt:             now,
	}
	if d := resp.PackageDiscount; d != nil {
		q.PackageDiscountPercentage = d.Percentage
		q.PackageDiscountAmount = d.Amount
	}
	return q, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty input
// yields nil.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonEmptyRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
