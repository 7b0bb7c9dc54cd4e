// Package events carries lifecycle events from domain services to an
// external sink. Emission is best-effort: services log a failed Emit and
// carry on.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type names one lifecycle event.
type Type string

const (
	QuoteRequestSubmitted   Type = "quote_request.submitted"
	QuoteRequestQuotesReady Type = "quote_request.quotes_ready"
	QuoteRequestFailed      Type = "quote_request.failed"
	PolicyBound             Type = "policy.bound"
	PolicyCancelled         Type = "policy.cancelled"
	CarrierHealthChanged    Type = "carrier.health_changed"
	UserRegistered          Type = "auth.user_registered"
	LoginSucceeded          Type = "auth.login_succeeded"
	LoginFailed             Type = "auth.login_failed"
	PasswordReset           Type = "auth.password_reset"
)

// Event is transport-agnostic so any sink can serialize it.
type Event struct {
	Type       Type              `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	Subject    string            `json:"subject"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Publisher emits events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Marshal is the wire encoding shared by the broker publishers.
func Marshal(event Event) ([]byte, error) {
	return json.Marshal(event)
}
