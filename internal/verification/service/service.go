package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"clarence/internal/verification/metrics"
	"clarence/internal/verification/models"
	"clarence/internal/verification/store"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/requestcontext"
)

// Sender delivers a code out-of-band.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Service issues and verifies short-lived phone verification codes.
type Service struct {
	store   store.Store
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
	newCode func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

func New(st store.Store, sender Sender, opts ...Option) *Service {
	s := &Service{
		store:   st,
		sender:  sender,
		logger:  slog.Default(),
		newCode: RandomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RandomCode returns a uniformly random code in 100000..999999.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func message(purpose models.Purpose, code string) string {
	if purpose == models.PurposePasswordReset {
		return fmt.Sprintf("Your Clarence password reset code is: %s. Valid for 15 minutes.", code)
	}
	return fmt.Sprintf("Your Clarence verification code is: %s. Valid for 10 minutes.", code)
}

// Create stores a new session for phone and sends its code. The code is
// never returned.
func (s *Service) Create(ctx context.Context, phone string, purpose models.Purpose) (string, time.Time, error) {
	if !purpose.IsValid() {
		return "", time.Time{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown verification purpose %q", purpose)
	}
	code, err := s.newCode()
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	now := requestcontext.Now(ctx)
	sessionID := uuid.NewString()
	key := models.Key(purpose, sessionID)
	session := &models.Session{
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
	}
	if err := s.store.Save(ctx, key, session, purpose.TTL()); err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification session")
	}

	if err := s.sender.Send(ctx, phone, message(purpose, code)); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification code",
			"purpose", string(purpose),
			"error", err,
		)
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to discard undelivered session", "error", delErr)
		}
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to send verification code")
	}

	s.metrics.IncrementOutcome(string(purpose), "created")
	return sessionID, now.Add(purpose.TTL()), nil
}

// Verify consumes one attempt against the session.
func (s *Service) Verify(ctx context.Context, purpose models.Purpose, sessionID, code string) (*models.VerifiedOutcome, error) {
	session, err := s.store.Consume(ctx, models.Key(purpose, sessionID), code, models.MaxAttempts)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementOutcome(string(purpose), "not_found")
		return nil, dErrors.New(dErrors.CodeNotFound, "Verification session expired or not found")
	case errors.Is(err, sentinel.ErrAttemptsExceeded):
		s.metrics.IncrementOutcome(string(purpose), "too_many_attempts")
		s.logger.WarnContext(ctx, "verification attempts exhausted",
			"purpose", string(purpose),
			"session_id", sessionID,
		)
		return nil, dErrors.New(dErrors.CodeTooManyAttempts, "Too many attempts. Please request a new code.")
	case errors.Is(err, sentinel.ErrMismatch):
		s.metrics.IncrementOutcome(string(purpose), "invalid_code")
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"Invalid verification code. %d attempts remaining.", session.AttemptsRemaining())
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}

	if session.Purpose != purpose {
		return nil, dErrors.New(dErrors.CodeNotFound, "Verification session expired or not found")
	}
	s.metrics.IncrementOutcome(string(purpose), "verified")
	return &models.VerifiedOutcome{Phone: session.Phone, Purpose: session.Purpose}, nil
}
