package client

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized carrier failure taxonomy.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorRejected       ErrorCategory = "rejected"
	ErrorInternal       ErrorCategory = "internal"
)

// ErrNoQuoteData marks a structurally valid response with no quote entries.
var ErrNoQuoteData = errors.New("no quote data returned from carrier")

// CarrierError is a categorized outbound call failure.
type CarrierError struct {
	Category   ErrorCategory
	Carrier    string
	Operation  string
	StatusCode int
	Message    string
	Underlying error
}

func (e *CarrierError) Error() string {
	msg := fmt.Sprintf("carrier %s %s [%s]", e.Carrier, e.Operation, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *CarrierError) Unwrap() error {
	return e.Underlying
}

// Retryable reports whether the failure is transient.
func (e *CarrierError) Retryable() bool {
	return e.Category == ErrorTimeout || e.Category == ErrorOutage || e.Category == ErrorRateLimited
}

// CategoryOf extracts the category, defaulting to internal.
func CategoryOf(err error) ErrorCategory {
	var ce *CarrierError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}

func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorOutage
	default:
		return ErrorRejected
	}
}
