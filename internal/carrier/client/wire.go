package client

import "encoding/json"

// QuoteAPIRequest is the body of POST /carriers/{code}/quote.
type QuoteAPIRequest struct {
	QuoteRequestID   string            `json:"quote_request_id"`
	InsuranceType    string            `json:"insurance_type"`
	BusinessInfo     BusinessInfo      `json:"business_info"`
	CoverageRequests []CoverageRequest `json:"coverage_requests"`
	AdditionalData   AdditionalData    `json:"additional_data"`
}

type BusinessInfo struct {
	LegalName     string        `json:"legal_name"`
	Industry      string        `json:"industry"`
	IndustryCode  string        `json:"industry_code,omitempty"`
	YearStarted   int           `json:"year_started,omitempty"`
	Address       Address       `json:"address"`
	FinancialInfo FinancialInfo `json:"financial_info"`
	ContactInfo   ContactInfo   `json:"contact_info"`
}

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

type FinancialInfo struct {
	AnnualRevenue     float64 `json:"annual_revenue"`
	AnnualPayroll     float64 `json:"annual_payroll"`
	FullTimeEmployees int     `json:"full_time_employees"`
}

type ContactInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type CoverageRequest struct {
	CoverageType        string             `json:"coverage_type"`
	RequestedLimits     map[string]float64 `json:"requested_limits"`
	RequestedDeductible float64            `json:"requested_deductible"`
	EffectiveDate       string             `json:"effective_date"`
}

type AdditionalData struct {
	PriorCoverage   bool     `json:"prior_coverage"`
	ClaimsHistory   []string `json:"claims_history"`
	CreditScoreTier string   `json:"credit_score_tier"`
}

// QuoteAPIResponse is the carrier's quote answer. Only the first entry of
// Quotes is used per coverage call.
type QuoteAPIResponse struct {
	Quotes          []QuoteEntry     `json:"quotes"`
	PackageDiscount *PackageDiscount `json:"package_discount,omitempty"`
	ValidUntil      string           `json:"valid_until"`
	Cached          bool             `json:"cached"`
}

type QuoteEntry struct {
	QuoteID           string          `json:"quote_id"`
	Status            string          `json:"status"`
	CoverageType      string          `json:"coverage_type"`
	Premium           Premium         `json:"premium"`
	CoverageLimits    json.RawMessage `json:"coverage_limits,omitempty"`
	Deductible        float64         `json:"deductible"`
	EffectiveDate     string          `json:"effective_date,omitempty"`
	ExpirationDate    string          `json:"expiration_date,omitempty"`
	PolicyForm        string          `json:"policy_form,omitempty"`
	Highlights        []string        `json:"highlights,omitempty"`
	Exclusions        []string        `json:"exclusions,omitempty"`
	OptionalCoverages json.RawMessage `json:"optional_coverages,omitempty"`
	UnderwritingNotes json.RawMessage `json:"underwriting_notes,omitempty"`
	DeclineReason     string          `json:"decline_reason,omitempty"`
	DeclineCode       string          `json:"decline_code,omitempty"`
}

type Premium struct {
	Annual                float64 `json:"annual"`
	Monthly               float64 `json:"monthly,omitempty"`
	Quarterly             float64 `json:"quarterly,omitempty"`
	PaymentInFullDiscount float64 `json:"payment_in_full_discount,omitempty"`
}

type PackageDiscount struct {
	Percentage *float64 `json:"percentage,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
}

// BindAPIRequest is the body of POST /carriers/{code}/bind.
type BindAPIRequest struct {
	QuoteID       string      `json:"quote_id"`
	EffectiveDate string      `json:"effective_date"`
	PaymentPlan   string      `json:"payment_plan"`
	PaymentInfo   PaymentInfo `json:"payment_info"`
	InsuredInfo   InsuredInfo `json:"insured_info"`
	Signature     Signature   `json:"signature"`
}

type PaymentInfo struct {
	Method         string  `json:"method"`
	Token          string  `json:"token"`
	BillingAddress Address `json:"billing_address"`
}

type InsuredInfo struct {
	PrimaryContact ContactInfo `json:"primary_contact"`
}

type Signature struct {
	FullName  string `json:"full_name"`
	SignedAt  string `json:"signed_at"`
	IPAddress string `json:"ip_address"`
}

// BindAPIResponse accepts both the nested {policy:{...}} shape and a flat
// one with the policy fields at the top level.
type BindAPIResponse struct {
	BindID       string       `json:"bind_id,omitempty"`
	Policy       *BoundPolicy `json:"policy,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	BoundPolicy
}

type BoundPolicy struct {
	PolicyID       string          `json:"policy_id,omitempty"`
	PolicyNumber   string          `json:"policy_number,omitempty"`
	Status         string          `json:"status,omitempty"`
	EffectiveDate  string          `json:"effective_date,omitempty"`
	ExpirationDate string          `json:"expiration_date,omitempty"`
	Documents      []Document      `json:"documents,omitempty"`
	CarrierContact json.RawMessage `json:"carrier_contact,omitempty"`
	MonthlyPremium float64         `json:"monthly_premium,omitempty"`
}

type Document struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Bound returns the policy block whichever shape the carrier used.
func (r *BindAPIResponse) Bound() BoundPolicy {
	if r.Policy != nil {
		return *r.Policy
	}
	return r.BoundPolicy
}

// IsBound reports whether the carrier confirmed the bind.
func (r *BindAPIResponse) IsBound() bool {
	return r.Bound().Status == "bound"
}
