package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores and adapters.
// Services translate them into coded domain errors at their boundary.
//
//   - ErrNotFound: record or keyed session does not exist (or has lapsed)
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrExpired: a stored deadline has passed
//   - ErrMismatch: a presented secret did not match the stored one
//   - ErrAttemptsExceeded: the attempt budget of a keyed secret is spent
//   - ErrInvalidState: entity in wrong state for the requested operation
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrExpired          = errors.New("expired")
	ErrMismatch         = errors.New("mismatch")
	ErrAttemptsExceeded = errors.New("attempts exceeded")
	ErrInvalidState     = errors.New("invalid state")
	ErrUnavailable      = errors.New("unavailable")
)
