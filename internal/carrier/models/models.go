// Package models defines carrier integration profiles and the canonical
// quote record every carrier response is normalized into.
package models

import (
	"encoding/json"
	"slices"
	"time"

	id "clarence/pkg/domain"
)

// HealthStatus is the last observed reachability of a carrier API.
type HealthStatus string

const (
	HealthOperational HealthStatus = "operational"
	HealthDegraded    HealthStatus = "degraded"
	HealthDown        HealthStatus = "down"
)

// Carrier is a third-party insurer integration profile.
type Carrier struct {
	ID                 id.CarrierID      `json:"id"`
	Code               string            `json:"code"`
	Name               string            `json:"name"`
	Specialization     string            `json:"specialization,omitempty"`
	IsActive           bool              `json:"isActive"`
	APIBaseURL         string            `json:"-"`
	APIKey             string            `json:"-"`
	SupportsPersonal   bool              `json:"supportsPersonal"`
	SupportsCommercial bool              `json:"supportsCommercial"`
	SupportedCoverages []id.CoverageType `json:"supportedCoverages"`
	HealthStatus       HealthStatus      `json:"healthStatus"`
	LastHealthCheck    *time.Time        `json:"lastHealthCheck,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// Supports reports whether the carrier writes the given line of business.
func (c *Carrier) Supports(t id.InsuranceType) bool {
	if t == id.InsuranceCommercial {
		return c.SupportsCommercial
	}
	return c.SupportsPersonal
}

func (c *Carrier) Coverages() id.CoverageSet {
	return id.NewCoverageSet(c.SupportedCoverages...)
}

// Quotable returns the requested coverages this carrier writes, in request order.
func (c *Carrier) Quotable(requested []id.CoverageType) []id.CoverageType {
	return c.Coverages().Intersect(requested)
}

// Clone returns a deep copy safe to hand out of a store.
func (c *Carrier) Clone() *Carrier {
	out := *c
	out.SupportedCoverages = slices.Clone(c.SupportedCoverages)
	if c.LastHealthCheck != nil {
		t := *c.LastHealthCheck
		out.LastHealthCheck = &t
	}
	return &out
}

// QuoteStatus is the canonical outcome of one carrier-coverage quote.
type QuoteStatus string

const (
	QuoteQuoted   QuoteStatus = "quoted"
	QuoteDeclined QuoteStatus = "declined"
	QuoteReferred QuoteStatus = "referred"
	QuoteExpired  QuoteStatus = "expired"
)

// ParseQuoteStatus maps a carrier status token. Anything other than quoted
// or declined is treated as a referral.
func ParseQuoteStatus(token string) QuoteStatus {
	switch token {
	case "quoted":
		return QuoteQuoted
	case "declined":
		return QuoteDeclined
	default:
		return QuoteReferred
	}
}

// CarrierQuote is one normalized answer for a (request, carrier, coverage)
// triple. Rows are append-only. The json.RawMessage fields hold the
// carrier's documents verbatim.
type CarrierQuote struct {
	ID                        id.CarrierQuoteID `json:"id"`
	QuoteRequestID            id.QuoteRequestID `json:"quoteRequestId"`
	CarrierID                 id.CarrierID      `json:"carrierId"`
	CarrierCode               string            `json:"carrierCode"`
	CarrierName               string            `json:"carrierName"`
	CarrierQuoteRef           string            `json:"carrierQuoteId"`
	Status                    QuoteStatus       `json:"status"`
	CoverageType              id.CoverageType   `json:"coverageType"`
	InsuranceType             id.InsuranceType  `json:"insuranceType"`
	AnnualPremium             float64           `json:"annualPremium"`
	MonthlyPremium            float64           `json:"monthlyPremium"`
	QuarterlyPremium          float64           `json:"quarterlyPremium"`
	PaymentInFullDiscount     float64           `json:"paymentInFullDiscount"`
	CoverageLimits            json.RawMessage   `json:"coverageLimits,omitempty"`
	Deductible                float64           `json:"deductible"`
	EffectiveDate             *time.Time        `json:"effectiveDate,omitempty"`
	ExpirationDate            *time.Time        `json:"expirationDate,omitempty"`
	PolicyForm                string            `json:"policyForm,omitempty"`
	Highlights                []string          `json:"highlights,omitempty"`
	Exclusions                []string          `json:"exclusions,omitempty"`
	OptionalCoverages         json.RawMessage   `json:"optionalCoverages,omitempty"`
	UnderwritingNotes         json.RawMessage   `json:"underwritingNotes,omitempty"`
	DeclineReason             string            `json:"declineReason,omitempty"`
	DeclineCode               string            `json:"declineCode,omitempty"`
	PackageDiscountPercentage *float64          `json:"packageDiscountPercentage,omitempty"`
	PackageDiscountAmount     *float64          `json:"packageDiscountAmount,omitempty"`
	ValidUntil                time.Time         `json:"validUntil"`
	Cached                    bool              `json:"cached"`
	ResponseTimeMs            int64             `json:"responseTimeMs"`
	RawCarrierResponse        json.RawMessage   `json:"-"`
	CreatedAt                 time.Time         `json:"createdAt"`
}

// IsExpired reports whether the quote can no longer be bound at now.
func (q *CarrierQuote) IsExpired(now time.Time) bool {
	return now.After(q.ValidUntil)
}

// Limits decodes numeric coverage limits. Non-numeric entries are skipped.
func (q *CarrierQuote) Limits() map[string]float64 {
	out := map[string]float64{}
	if len(q.CoverageLimits) == 0 {
		return out
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(q.CoverageLimits, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		var f float64
		if json.Unmarshal(v, &f) == nil {
			out[k] = f
		}
	}
	return out
}

// Clone returns a deep copy safe to hand out of a store.
func (q *CarrierQuote) Clone() *CarrierQuote {
	out := *q
	out.CoverageLimits = slices.Clone(q.CoverageLimits)
	out.OptionalCoverages = slices.Clone(q.OptionalCoverages)
	out.UnderwritingNotes = slices.Clone(q.UnderwritingNotes)
	out.RawCarrierResponse = slices.Clone(q.RawCarrierResponse)
	out.Highlights = slices.Clone(q.Highlights)
	out.Exclusions = slices.Clone(q.Exclusions)
	out.EffectiveDate = cloneTime(q.EffectiveDate)
	out.ExpirationDate = cloneTime(q.ExpirationDate)
	if q.PackageDiscountPercentage != nil {
		v := *q.PackageDiscountPercentage
		out.PackageDiscountPercentage = &v
	}
	if q.PackageDiscountAmount != nil {
		v := *q.PackageDiscountAmount
		out.PackageDiscountAmount = &v
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
