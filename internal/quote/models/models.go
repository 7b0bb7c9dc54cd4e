// Package models defines quote requests, their coverage selections and the
// lifecycle state machine they move through.
package models

import (
	"slices"
	"strings"
	"time"

	carriermodels "clarence/internal/carrier/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
)

// Status is the lifecycle position of a quote request.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSubmitted     Status = "submitted"
	StatusProcessing    Status = "processing"
	StatusQuotesReady   Status = "quotes_ready"
	StatusQuoteSelected Status = "quote_selected"
	StatusPurchased     Status = "purchased"
	StatusExpired       Status = "expired"
)

// transitions lists the statuses reachable from each status. Processing may
// fall back to draft so a structurally failed request can be resubmitted.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusSubmitted},
	StatusSubmitted:     {StatusProcessing},
	StatusProcessing:    {StatusQuotesReady, StatusDraft},
	StatusQuotesReady:   {StatusQuoteSelected, StatusPurchased, StatusExpired},
	StatusQuoteSelected: {StatusPurchased, StatusExpired},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusProcessing, StatusQuotesReady,
		StatusQuoteSelected, StatusPurchased, StatusExpired:
		return true
	}
	return false
}

// RequestType distinguishes new business from renewals.
type RequestType string

const (
	RequestNewCoverage RequestType = "new_coverage"
	RequestRenewal     RequestType = "renewal"
)

func (t RequestType) IsValid() bool {
	return t == RequestNewCoverage || t == RequestRenewal
}

type AddressType string

const (
	AddressPhysical AddressType = "physical"
	AddressVirtual  AddressType = "virtual"
)

type BusinessInfo struct {
	LegalName             string `json:"legalBusinessName,omitempty"`
	DBAName               string `json:"dbaName,omitempty"`
	LegalStructure        string `json:"legalStructure,omitempty"`
	Website               string `json:"businessWebsite,omitempty"`
	Industry              string `json:"industry,omitempty"`
	IndustryCode          string `json:"industryCode,omitempty"`
	Description           string `json:"businessDescription,omitempty"`
	FEIN                  string `json:"fein,omitempty"`
	YearStarted           int    `json:"yearStarted,omitempty"`
	YearsCurrentOwnership int    `json:"yearsCurrentOwnership,omitempty"`
}

type Address struct {
	Type   AddressType `json:"addressType,omitempty"`
	Street string      `json:"streetAddress,omitempty"`
	Unit   string      `json:"addressUnit,omitempty"`
	City   string      `json:"city,omitempty"`
	State  string      `json:"state,omitempty"`
	Zip    string      `json:"zipCode,omitempty"`
}

// Line renders the address on one line, e.g. "1 Main St Ste 2, Austin, TX 78701".
func (a Address) Line() string {
	street := a.Street
	if a.Unit != "" {
		street += " " + a.Unit
	}
	return street + ", " + a.City + ", " + a.State + " " + a.Zip
}

type Contact struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Financials are the reported figures for the current year plus estimates
// for the next one.
type Financials struct {
	Revenue              float64 `json:"revenue,omitempty"`
	Expenses             float64 `json:"expenses,omitempty"`
	RevenueEstimate      float64 `json:"revenueEstimate,omitempty"`
	ExpensesEstimate     float64 `json:"expensesEstimate,omitempty"`
	FullTimeEmployees    int     `json:"fullTimeEmployees,omitempty"`
	PartTimeEmployees    int     `json:"partTimeEmployees,omitempty"`
	TotalPayroll         float64 `json:"totalPayroll,omitempty"`
	ContractorPercentage float64 `json:"contractorPercentage,omitempty"`
}

// QuoteRequest is one customer's quoting session. Business fields are
// optional until submission.
type QuoteRequest struct {
	ID                      id.QuoteRequestID `json:"id"`
	SessionID               string            `json:"sessionId"`
	UserID                  *id.UserID        `json:"userId,omitempty"`
	InsuranceType           id.InsuranceType  `json:"insuranceType"`
	RequestType             RequestType       `json:"requestType"`
	Status                  Status            `json:"status"`
	Business                BusinessInfo      `json:"businessInfo"`
	Address                 Address           `json:"address"`
	Contact                 Contact           `json:"contact"`
	Financials              Financials        `json:"financials"`
	AdditionalComments      string            `json:"additionalComments,omitempty"`
	ConsentMarketing        bool              `json:"consentMarketing"`
	ConsentPrivacyPolicy    bool              `json:"consentPrivacyPolicy"`
	SubmittedAt             *time.Time        `json:"submittedAt,omitempty"`
	QuotesReadyAt           *time.Time        `json:"quotesReadyAt,omitempty"`
	EstimatedCompletionTime *time.Time        `json:"estimatedCompletionTime,omitempty"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

// MissingFields lists the required submission fields that are blank, in a
// fixed order.
func (q *QuoteRequest) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"legalBusinessName", q.Business.LegalName},
		{"industry", q.Business.Industry},
		{"streetAddress", q.Address.Street},
		{"city", q.Address.City},
		{"state", q.Address.State},
		{"zipCode", q.Address.Zip},
		{"contactFirstName", q.Contact.FirstName},
		{"contactLastName", q.Contact.LastName},
		{"contactEmail", q.Contact.Email},
		{"contactPhone", q.Contact.Phone},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Clone returns a copy that shares no pointers with q.
func (q *QuoteRequest) Clone() *QuoteRequest {
	out := *q
	out.UserID = clonePtr(q.UserID)
	out.SubmittedAt = clonePtr(q.SubmittedAt)
	out.QuotesReadyAt = clonePtr(q.QuotesReadyAt)
	out.EstimatedCompletionTime = clonePtr(q.EstimatedCompletionTime)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Coverage is one coverage line selected or recommended for a request.
type Coverage struct {
	QuoteRequestID       id.QuoteRequestID `json:"quoteRequestId"`
	CoverageType         id.CoverageType   `json:"coverageType"`
	IsSelected           bool              `json:"isSelected"`
	IsRecommended        bool              `json:"isRecommended"`
	RecommendationReason string            `json:"recommendationReason,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
}

// SelectedTypes returns the coverage types marked selected, in order.
func SelectedTypes(coverages []Coverage) []id.CoverageType {
	var out []id.CoverageType
	for _, c := range coverages {
		if c.IsSelected {
			out = append(out, c.CoverageType)
		}
	}
	return out
}

// CreateRequest starts a draft quote request.
type CreateRequest struct {
	SessionID          string           `json:"sessionId"`
	UserID             *id.UserID       `json:"userId,omitempty"`
	InsuranceType      id.InsuranceType `json:"insuranceType"`
	RequestType        RequestType      `json:"requestType"`
	Business           *BusinessInfo    `json:"businessInfo,omitempty"`
	Address            *Address         `json:"address,omitempty"`
	Contact            *Contact         `json:"contact,omitempty"`
	Financials         *Financials      `json:"financials,omitempty"`
	AdditionalComments string           `json:"additionalComments,omitempty"`
}

func (r *CreateRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return dErrors.New(dErrors.CodeValidation, "sessionId is required")
	}
	if len(r.SessionID) > 100 {
		return dErrors.New(dErrors.CodeValidation, "sessionId must be at most 100 characters")
	}
	if !r.InsuranceType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "insuranceType must be personal or commercial")
	}
	if !r.RequestType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "requestType must be new_coverage or renewal")
	}
	if r.Address != nil {
		return validateAddress(r.Address)
	}
	return nil
}

// UpdateRequest patches a draft. Each supplied section replaces the stored
// one; omitted sections are left alone.
type UpdateRequest struct {
	UserID               *id.UserID    `json:"userId,omitempty"`
	Business             *BusinessInfo `json:"businessInfo,omitempty"`
	Address              *Address      `json:"address,omitempty"`
	Contact              *Contact      `json:"contact,omitempty"`
	Financials           *Financials   `json:"financials,omitempty"`
	AdditionalComments   *string       `json:"additionalComments,omitempty"`
	ConsentMarketing     *bool         `json:"consentMarketing,omitempty"`
	ConsentPrivacyPolicy *bool         `json:"consentPrivacyPolicy,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r.Address != nil {
		return validateAddress(r.Address)
	}
	return nil
}

// Apply copies the supplied sections onto q.
func (r *UpdateRequest) Apply(q *QuoteRequest) {
	if r.UserID != nil {
		u := *r.UserID
		q.UserID = &u
	}
	if r.Business != nil {
		q.Business = *r.Business
	}
	if r.Address != nil {
		q.Address = *r.Address
	}
	if r.Contact != nil {
		q.Contact = *r.Contact
	}
	if r.Financials != nil {
		q.Financials = *r.Financials
	}
	if r.AdditionalComments != nil {
		q.AdditionalComments = *r.AdditionalComments
	}
	if r.ConsentMarketing != nil {
		q.ConsentMarketing = *r.ConsentMarketing
	}
	if r.ConsentPrivacyPolicy != nil {
		q.ConsentPrivacyPolicy = *r.ConsentPrivacyPolicy
	}
}

func validateAddress(a *Address) error {
	switch a.Type {
	case "", AddressPhysical, AddressVirtual:
	default:
		return dErrors.New(dErrors.CodeValidation, "addressType must be physical or virtual")
	}
	if a.State != "" && len(a.State) != 2 {
		return dErrors.New(dErrors.CodeValidation, "state must be a two-letter code")
	}
	return nil
}

// SelectCoveragesRequest replaces the selected coverage set.
type SelectCoveragesRequest struct {
	SelectedCoverages []id.CoverageType `json:"selectedCoverages"`
}

// Validate normalizes tokens and drops duplicates.
func (r *SelectCoveragesRequest) Validate() error {
	seen := make(id.CoverageSet, len(r.SelectedCoverages))
	out := make([]id.CoverageType, 0, len(r.SelectedCoverages))
	for _, c := range r.SelectedCoverages {
		c = c.Normalize()
		if c == "" {
			return dErrors.New(dErrors.CodeValidation, "coverage type must not be empty")
		}
		if seen.Has(c) {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	r.SelectedCoverages = out
	return nil
}

// Detail is a request together with its coverages and collected quotes,
// quotes ordered by annual premium.
type Detail struct {
	QuoteRequest *QuoteRequest                 `json:"quoteRequest"`
	Coverages    []Coverage                    `json:"coverages"`
	Quotes       []*carriermodels.CarrierQuote `json:"quotes"`
}
