// Package models defines bound policies and the bind request that creates
// them from an accepted carrier quote.
package models

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"time"

	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
)

type Status string

const (
	StatusBound               Status = "bound"
	StatusActive              Status = "active"
	StatusCancelled           Status = "cancelled"
	StatusExpired             Status = "expired"
	StatusPendingCancellation Status = "pending_cancellation"
)

// InForce reports whether the policy currently provides coverage.
func (s Status) InForce() bool {
	return s == StatusBound || s == StatusActive
}

type PaymentPlan string

const (
	PlanAnnual    PaymentPlan = "annual"
	PlanMonthly   PaymentPlan = "monthly"
	PlanQuarterly PaymentPlan = "quarterly"
)

func (p PaymentPlan) IsValid() bool {
	return p == PlanAnnual || p == PlanMonthly || p == PlanQuarterly
}

// PaymentsRemaining is the installment count for the plan. Annual plans
// have no schedule.
func (p PaymentPlan) PaymentsRemaining() *int {
	var n int
	switch p {
	case PlanMonthly:
		n = 12
	case PlanQuarterly:
		n = 4
	default:
		return nil
	}
	return &n
}

// MonthlyAmount is the carrier's monthly premium, or the annual premium
// spread over twelve and rounded up. Only monthly plans have one.
func (p PaymentPlan) MonthlyAmount(carrierMonthly, annual float64) *float64 {
	if p != PlanMonthly {
		return nil
	}
	v := carrierMonthly
	if v <= 0 {
		v = math.Ceil(annual / 12)
	}
	return &v
}

// FirstPaymentGrace is the gap between the effective date and the first
// installment.
const FirstPaymentGrace = 15 * 24 * time.Hour

type Document struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Policy is a snapshot of the accepted quote plus what the carrier issued
// at bind time.
type Policy struct {
	ID                 id.PolicyID       `json:"id"`
	PolicyNumber       string            `json:"policyNumber"`
	UserID             *id.UserID        `json:"userId,omitempty"`
	QuoteRequestID     id.QuoteRequestID `json:"quoteRequestId"`
	CarrierQuoteID     id.CarrierQuoteID `json:"carrierQuoteId"`
	CarrierID          id.CarrierID      `json:"carrierId"`
	CarrierName        string            `json:"carrierName"`
	CarrierPolicyID    string            `json:"carrierPolicyId,omitempty"`
	CarrierBindID      string            `json:"carrierBindId,omitempty"`
	InsuranceType      id.InsuranceType  `json:"insuranceType"`
	CoverageType       id.CoverageType   `json:"coverageType"`
	Status             Status            `json:"status"`
	CoverageLimits     json.RawMessage   `json:"coverageLimits,omitempty"`
	Deductible         float64           `json:"deductible"`
	AnnualPremium      float64           `json:"annualPremium"`
	PaymentPlan        PaymentPlan       `json:"paymentPlan"`
	MonthlyAmount      *float64          `json:"monthlyAmount,omitempty"`
	EffectiveDate      *time.Time        `json:"effectiveDate,omitempty"`
	ExpirationDate     *time.Time        `json:"expirationDate,omitempty"`
	BoundAt            time.Time         `json:"boundAt"`
	InsuredName        string            `json:"insuredName"`
	InsuredAddress     string            `json:"insuredAddress"`
	FirstPaymentDue    *time.Time        `json:"firstPaymentDue,omitempty"`
	NextPaymentDate    *time.Time        `json:"nextPaymentDate,omitempty"`
	PaymentsRemaining  *int              `json:"paymentsRemaining,omitempty"`
	AutoRenewal        bool              `json:"autoRenewal"`
	Documents          []Document        `json:"documents"`
	CarrierContact     json.RawMessage   `json:"carrierContact,omitempty"`
	CarrierPolicyData  json.RawMessage   `json:"-"`
	Notes              string            `json:"notes,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CancellationReason string            `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// ExpiresWithin reports whether an in-force policy expires after now and no
// later than now+window.
func (p *Policy) ExpiresWithin(now time.Time, window time.Duration) bool {
	if !p.Status.InForce() || p.ExpirationDate == nil {
		return false
	}
	return p.ExpirationDate.After(now) && !p.ExpirationDate.After(now.Add(window))
}

func (p *Policy) Clone() *Policy {
	out := *p
	if p.UserID != nil {
		u := *p.UserID
		out.UserID = &u
	}
	if p.MonthlyAmount != nil {
		v := *p.MonthlyAmount
		out.MonthlyAmount = &v
	}
	if p.PaymentsRemaining != nil {
		v := *p.PaymentsRemaining
		out.PaymentsRemaining = &v
	}
	out.EffectiveDate = cloneTime(p.EffectiveDate)
	out.ExpirationDate = cloneTime(p.ExpirationDate)
	out.FirstPaymentDue = cloneTime(p.FirstPaymentDue)
	out.NextPaymentDate = cloneTime(p.NextPaymentDate)
	out.CancelledAt = cloneTime(p.CancelledAt)
	out.CoverageLimits = slices.Clone(p.CoverageLimits)
	out.CarrierContact = slices.Clone(p.CarrierContact)
	out.CarrierPolicyData = slices.Clone(p.CarrierPolicyData)
	out.Documents = slices.Clone(p.Documents)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// BindRequest asks to bind one carrier quote. UserID comes from the
// authenticated caller, never from the body.
type BindRequest struct {
	CarrierQuoteID   id.CarrierQuoteID `json:"carrierQuoteId"`
	UserID           *id.UserID        `json:"-"`
	PaymentPlan      PaymentPlan       `json:"paymentPlan"`
	AutoRenewal      *bool             `json:"autoRenewal,omitempty"`
	PaymentMethodRef string            `json:"paymentMethodId,omitempty"`
	Notes            string            `json:"additionalNotes,omitempty"`
}

func (r *BindRequest) Validate() error {
	if r.CarrierQuoteID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "carrierQuoteId is required")
	}
	r.PaymentPlan = PaymentPlan(strings.ToLower(strings.TrimSpace(string(r.PaymentPlan))))
	if !r.PaymentPlan.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "paymentPlan must be annual, monthly or quarterly")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "additionalNotes must be at most 2000 characters")
	}
	return nil
}

// AutoRenews defaults to true when the caller did not say.
func (r *BindRequest) AutoRenews() bool {
	return r.AutoRenewal == nil || *r.AutoRenewal
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}
