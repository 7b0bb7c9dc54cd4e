package models

import (
	"strings"
	"time"
)

// Result describes one rate limit decision.
type Result struct {
	Allowed    bool
	Limit      int
	Count      int
	RetryAfter time.Duration
}

// Remaining is how many more hits the window allows.
func (r Result) Remaining() int {
	if n := r.Limit - r.Count; n > 0 {
		return n
	}
	return 0
}

// SanitizeKeySegment escapes delimiter characters so a user-controlled
// segment cannot address a neighbouring key.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// SMSKey counts code sends per purpose and phone.
func SMSKey(purpose, phone string) string {
	return "rate-limit:" + SanitizeKeySegment(purpose) + ":" + SanitizeKeySegment(phone)
}

// LoginFailureKey counts consecutive failed logins per phone.
func LoginFailureKey(phone string) string {
	return "failed-login:" + SanitizeKeySegment(phone)
}

const (
	SMSLimit  = 3
	SMSWindow = time.Hour

	LoginFailureLimit  = 5
	LoginFailureWindow = 15 * time.Minute
)
