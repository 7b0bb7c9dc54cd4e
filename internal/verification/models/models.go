package models

import "time"

// Purpose scopes a verification session to one flow.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password_reset"
)

func (p Purpose) IsValid() bool {
	return p == PurposeRegistration || p == PurposePasswordReset
}

const (
	// MaxAttempts is the number of wrong codes a session absorbs before it is
	// destroyed on the next verify.
	MaxAttempts = 3

	RegistrationTTL  = 10 * time.Minute
	PasswordResetTTL = 15 * time.Minute
)

// TTL returns the lifetime of a session created for p.
func (p Purpose) TTL() time.Duration {
	if p == PurposePasswordReset {
		return PasswordResetTTL
	}
	return RegistrationTTL
}

// KeyPrefix namespaces sessions per purpose so a reset session can never be
// consumed through the registration flow and vice versa.
func (p Purpose) KeyPrefix() string {
	if p == PurposePasswordReset {
		return "reset:"
	}
	return "verification:"
}

// Key is the storage key of a session id under purpose p.
func Key(p Purpose, sessionID string) string {
	return p.KeyPrefix() + sessionID
}

// Session is an ephemeral keyed secret delivered out-of-band.
type Session struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	Attempts  int       `json:"attempts"`
	Purpose   Purpose   `json:"purpose"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttemptsRemaining is what the caller is told after a wrong code.
func (s *Session) AttemptsRemaining() int {
	if r := MaxAttempts - s.Attempts; r > 0 {
		return r
	}
	return 0
}

// VerifiedOutcome is what a successful verify yields.
type VerifiedOutcome struct {
	Phone   string
	Purpose Purpose
}
