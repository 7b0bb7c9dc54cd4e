package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
)

func TestMonthlyAmount(t *testing.T) {
	tests := []struct {
		name    string
		plan    PaymentPlan
		monthly float64
		annual  float64
		want    *float64
	}{
		{"carrier monthly wins", PlanMonthly, 105, 1200, ptr(105.0)},
		{"annual spread and rounded up", PlanMonthly, 0, 1201, ptr(101.0)},
		{"annual plan has none", PlanAnnual, 105, 1200, nil},
		{"quarterly plan has none", PlanQuarterly, 105, 1200, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.plan.MonthlyAmount(tt.monthly, tt.annual))
		})
	}
}

func TestPaymentsRemaining(t *testing.T) {
	assert.Equal(t, ptr(12), PlanMonthly.PaymentsRemaining())
	assert.Equal(t, ptr(4), PlanQuarterly.PaymentsRemaining())
	assert.Nil(t, PlanAnnual.PaymentsRemaining())
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 60 * 24 * time.Hour
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	tests := []struct {
		name   string
		status Status
		expiry *time.Time
		want   bool
	}{
		{"inside window", StatusActive, at(30 * 24 * time.Hour), true},
		{"bound counts as in force", StatusBound, at(time.Hour), true},
		{"window edge is included", StatusActive, at(window), true},
		{"beyond window", StatusActive, at(window + time.Second), false},
		{"already expired", StatusActive, at(-time.Hour), false},
		{"cancelled", StatusCancelled, at(time.Hour), false},
		{"no expiry", StatusActive, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Policy{Status: tt.status, ExpirationDate: tt.expiry}
			assert.Equal(t, tt.want, p.ExpiresWithin(now, window))
		})
	}
}

func TestBindRequestValidate(t *testing.T) {
	req := &BindRequest{CarrierQuoteID: id.NewCarrierQuoteID(), PaymentPlan: " Monthly "}
	require.NoError(t, req.Validate())
	assert.Equal(t, PlanMonthly, req.PaymentPlan)
	assert.True(t, req.AutoRenews())

	off := false
	req.AutoRenewal = &off
	assert.False(t, req.AutoRenews())

	err := (&BindRequest{PaymentPlan: PlanAnnual}).Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = (&BindRequest{CarrierQuoteID: id.NewCarrierQuoteID(), PaymentPlan: "weekly"}).Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestClone_DoesNotShareState(t *testing.T) {
	due := time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)
	p := &Policy{
		FirstPaymentDue:   &due,
		Documents:         []Document{{Type: "policy", URL: "https://docs/p.pdf"}},
		PaymentsRemaining: ptr(12),
	}
	c := p.Clone()
	*c.FirstPaymentDue = due.Add(time.Hour)
	c.Documents[0].URL = "changed"
	*c.PaymentsRemaining = 11

	assert.Equal(t, due, *p.FirstPaymentDue)
	assert.Equal(t, "https://docs/p.pdf", p.Documents[0].URL)
	assert.Equal(t, 12, *p.PaymentsRemaining)
}

func ptr[T any](v T) *T {
	return &v
}
