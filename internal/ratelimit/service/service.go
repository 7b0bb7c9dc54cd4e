package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"clarence/internal/ratelimit/metrics"
	"clarence/internal/ratelimit/models"
	"clarence/internal/ratelimit/store"
	dErrors "clarence/pkg/domain-errors"
)

// Service enforces the SMS send limit and the login lockout.
type Service struct {
	store   store.CounterStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

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

func New(st store.CounterStore, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("rate limit store is required")
	}
	svc := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Allow counts one hit against key and reports whether it fits in limit.
func (s *Service) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	count, ttl, err := s.store.Increment(ctx, key, window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	res := &models.Result{Allowed: count <= limit, Limit: limit, Count: count}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

// CheckSMS enforces the per-phone, per-purpose code send limit.
func (s *Service) CheckSMS(ctx context.Context, purpose, phone string) error {
	res, err := s.Allow(ctx, models.SMSKey(purpose, phone), models.SMSLimit, models.SMSWindow)
	if err != nil {
		return err
	}
	s.metrics.IncrementDecision("sms", res.Allowed)
	if !res.Allowed {
		s.logger.WarnContext(ctx, "sms rate limit exceeded",
			"purpose", purpose,
			"retry_after_s", int(res.RetryAfter.Seconds()),
		)
		return dErrors.Newf(dErrors.CodeRateLimited,
			"Too many requests. Please try again in %d minutes.", minutesCeil(res.RetryAfter))
	}
	return nil
}

// CheckLogin fails with a locked error while phone has too many recent
// failed logins.
func (s *Service) CheckLogin(ctx context.Context, phone string) error {
	count, ttl, err := s.store.Get(ctx, models.LoginFailureKey(phone))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check login lockout")
	}
	locked := count >= models.LoginFailureLimit
	s.metrics.IncrementDecision("login", !locked)
	if locked {
		return dErrors.Newf(dErrors.CodeLocked,
			"Account temporarily locked. Please try again in %d minutes.", minutesCeil(ttl))
	}
	return nil
}

// RecordLoginFailure counts one failed login. It returns the attempts left
// before the phone locks.
func (s *Service) RecordLoginFailure(ctx context.Context, phone string) (int, error) {
	count, _, err := s.store.Increment(ctx, models.LoginFailureKey(phone), models.LoginFailureWindow)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	s.metrics.IncrementLoginFailures()
	if count == models.LoginFailureLimit {
		s.metrics.IncrementLockouts()
		s.logger.WarnContext(ctx, "login lockout triggered",
			"failures", count,
		)
	}
	return max(models.LoginFailureLimit-count, 0), nil
}

// ClearLoginFailures resets the lockout counter after a successful login.
func (s *Service) ClearLoginFailures(ctx context.Context, phone string) error {
	if err := s.store.Delete(ctx, models.LoginFailureKey(phone)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login failures")
	}
	return nil
}

func minutesCeil(d time.Duration) int {
	m := int(math.Ceil(d.Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
