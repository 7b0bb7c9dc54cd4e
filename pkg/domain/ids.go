// Package domain holds typed identifiers and insurance vocabulary shared
// across modules. Each ID is a distinct named UUID type so a carrier ID can
// never be passed where a quote request ID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "clarence/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	QuoteRequestID uuid.UUID
	CarrierID      uuid.UUID
	CarrierQuoteID uuid.UUID
	PolicyID       uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id QuoteRequestID) String() string { return uuid.UUID(id).String() }
func (id CarrierID) String() string      { return uuid.UUID(id).String() }
func (id CarrierQuoteID) String() string { return uuid.UUID(id).String() }
func (id PolicyID) String() string       { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id QuoteRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CarrierID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CarrierQuoteID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewQuoteRequestID() QuoteRequestID { return QuoteRequestID(uuid.New()) }
func NewCarrierID() CarrierID           { return CarrierID(uuid.New()) }
func NewCarrierQuoteID() CarrierQuoteID { return CarrierQuoteID(uuid.New()) }
func NewPolicyID() PolicyID             { return PolicyID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseQuoteRequestID(s string) (QuoteRequestID, error) {
	u, err := parseUUID(s, "quote request id")
	return QuoteRequestID(u), err
}

func ParseCarrierID(s string) (CarrierID, error) {
	u, err := parseUUID(s, "carrier id")
	return CarrierID(u), err
}

func ParseCarrierQuoteID(s string) (CarrierQuoteID, error) {
	u, err := parseUUID(s, "carrier quote id")
	return CarrierQuoteID(u), err
}

func ParsePolicyID(s string) (PolicyID, error) {
	u, err := parseUUID(s, "policy id")
	return PolicyID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", label)
	}
	return u, nil
}

func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id QuoteRequestID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CarrierID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id CarrierQuoteID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id PolicyID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *QuoteRequestID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CarrierID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CarrierQuoteID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PolicyID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
