// Package service implements phone-based account flows: verification,
// registration, login, token rotation and password reset.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"clarence/internal/auth/metrics"
	"clarence/internal/auth/models"
	jwttoken "clarence/internal/jwt_token"
	vmodels "clarence/internal/verification/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/events"
	"clarence/pkg/platform/sentinel"
	"clarence/pkg/requestcontext"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID id.UserID, at time.Time) error
	UpdatePassword(ctx context.Context, userID id.UserID, hash string, at time.Time) error
}

// Verifier issues and checks one-time phone codes.
type Verifier interface {
	Create(ctx context.Context, phone string, purpose vmodels.Purpose) (string, time.Time, error)
	Verify(ctx context.Context, purpose vmodels.Purpose, sessionID, code string) (*vmodels.VerifiedOutcome, error)
}

// Limiter guards SMS sends and failed logins.
type Limiter interface {
	CheckSMS(ctx context.Context, purpose, phone string) error
	CheckLogin(ctx context.Context, phone string) error
	RecordLoginFailure(ctx context.Context, phone string) (int, error)
	ClearLoginFailures(ctx context.Context, phone string) error
}

// TokenIssuer signs and parses the three token kinds.
type TokenIssuer interface {
	GenerateVerificationToken(phone, purpose string) (string, error)
	GenerateAccessToken(userID, phone string) (string, error)
	GenerateRefreshToken(userID, phone string) (string, string, error)
	ValidateVerificationToken(token string) (*jwttoken.VerificationClaims, error)
	ValidateRefreshToken(token string) (*jwttoken.RefreshClaims, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// RevocationList is the refresh token blacklist.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeIfAbsent(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

const (
	invalidCredentials  = "Invalid phone number or password"
	invalidVerification = "Invalid or expired verification token"
)

type Service struct {
	users      UserStore
	verifier   Verifier
	limiter    Limiter
	tokens     TokenIssuer
	revocation RevocationList
	publisher  events.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	bcryptCost int
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

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost {
			s.bcryptCost = cost
		}
	}
}

func New(users UserStore, verifier Verifier, limiter Limiter, tokens TokenIssuer, revocation RevocationList, opts ...Option) (*Service, error) {
	if users == nil || verifier == nil || limiter == nil || tokens == nil || revocation == nil {
		return nil, errors.New("auth service requires user store, verifier, limiter, token issuer and revocation list")
	}
	s := &Service{
		users:      users,
		verifier:   verifier,
		limiter:    limiter,
		tokens:     tokens,
		revocation: revocation,
		logger:     slog.Default(),
		bcryptCost: 12,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckPhone reports whether phone already has an account.
func (s *Service) CheckPhone(ctx context.Context, req *models.CheckPhoneRequest) (*models.CheckPhoneResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.users.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check phone")
	}
	if exists {
		return &models.CheckPhoneResult{Exists: true, Message: "This number is already registered. Please log in."}, nil
	}
	return &models.CheckPhoneResult{Exists: false, Message: "Phone number is available"}, nil
}

// SendCode rate-limits and then starts a verification session.
func (s *Service) SendCode(ctx context.Context, req *models.SendCodeRequest) (*models.SendCodeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.limiter.CheckSMS(ctx, req.Purpose, req.Phone); err != nil {
		return nil, err
	}
	sessionID, expiresAt, err := s.verifier.Create(ctx, req.Phone, vmodels.Purpose(req.Purpose))
	if err != nil {
		return nil, err
	}
	return &models.SendCodeResult{
		VerificationID: sessionID,
		ExpiresAt:      expiresAt,
		Message:        "Verification code sent to your phone",
	}, nil
}

// VerifyCode exchanges a correct code for a short-lived verification token.
func (s *Service) VerifyCode(ctx context.Context, req *models.VerifyCodeRequest) (*models.VerifyCodeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	outcome, err := s.verifier.Verify(ctx, vmodels.Purpose(req.Purpose), req.VerificationID, req.Code)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.GenerateVerificationToken(outcome.Phone, string(outcome.Purpose))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue verification token")
	}
	return &models.VerifyCodeResult{
		Verified:          true,
		VerificationToken: token,
		ExpiresAt:         requestcontext.Now(ctx).Add(jwttoken.VerificationTokenTTL),
	}, nil
}

// Register creates an account for the phone proven by the verification token.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	claims, err := s.tokens.ValidateVerificationToken(req.VerificationToken)
	if err != nil || claims.Purpose != string(vmodels.PurposeRegistration) {
		return nil, dErrors.New(dErrors.CodeBadRequest, invalidVerification)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:            id.NewUserID(),
		Phone:         claims.Phone,
		PasswordHash:  string(hash),
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		AccountStatus: models.AccountActive,
		LastLoginAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "An account with this phone number already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementRegistrations()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	s.emit(ctx, events.UserRegistered, user.ID.String(), nil)
	return &models.AuthResult{User: models.NewUserView(user), Tokens: *tokens}, nil
}

// Login checks the lockout, then the password. Unknown phones and wrong
// passwords fail identically and both count toward the lockout.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.limiter.CheckLogin(ctx, req.Phone); err != nil {
		s.metrics.IncrementLogin("locked")
		return nil, err
	}

	user, err := s.users.FindByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, s.failLogin(ctx, req.Phone)
	}
	if user.AccountStatus != "" && user.AccountStatus != models.AccountActive {
		s.metrics.IncrementLogin("inactive")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Account is not active")
	}

	if err := s.limiter.ClearLoginFailures(ctx, req.Phone); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
	}
	now := requestcontext.Now(ctx)
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
	}
	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementLogin("success")
	s.emit(ctx, events.LoginSucceeded, user.ID.String(), map[string]string{"device": deviceLabel(ctx)})
	return &models.AuthResult{User: models.NewUserView(user), Tokens: *tokens}, nil
}

func (s *Service) failLogin(ctx context.Context, phone string) error {
	s.metrics.IncrementLogin("invalid_credentials")
	if _, err := s.limiter.RecordLoginFailure(ctx, phone); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", "error", err)
	}
	s.emit(ctx, events.LoginFailed, "", map[string]string{"device": deviceLabel(ctx)})
	return dErrors.New(dErrors.CodeUnauthorized, invalidCredentials)
}

// Refresh rotates a refresh token. Claiming the presented jti on the
// blacklist is the single-use gate: of concurrent callers holding the same
// token, only the one whose claim lands gets a new pair.
func (s *Service) Refresh(ctx context.Context, req *models.RefreshRequest) (*models.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.metrics.IncrementRefresh("invalid")
		return nil, err
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claimed, err := s.revocation.RevokeIfAbsent(ctx, claims.ID, s.tokens.RefreshTokenTTL())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke refresh token")
	}
	if !claimed {
		s.metrics.IncrementRefresh("revoked")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Token has been revoked")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	s.metrics.IncrementRefresh("rotated")
	return s.issuePair(user)
}

// Logout blacklists the refresh token. It never fails on a bad token.
func (s *Service) Logout(ctx context.Context, req *models.RefreshRequest) (*models.MessageResult, error) {
	result := &models.MessageResult{Message: "Logged out successfully"}
	if req.RefreshToken == "" {
		return result, nil
	}
	claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return result, nil
	}
	if err := s.revocation.Revoke(ctx, claims.ID, s.tokens.RefreshTokenTTL()); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke refresh token on logout", "error", err)
	}
	return result, nil
}

// ForgotPassword sends a reset code to a registered phone.
func (s *Service) ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) (*models.ForgotPasswordResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.users.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check phone")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "No account found with this phone number")
	}
	if err := s.limiter.CheckSMS(ctx, string(vmodels.PurposePasswordReset), req.Phone); err != nil {
		return nil, err
	}
	resetID, expiresAt, err := s.verifier.Create(ctx, req.Phone, vmodels.PurposePasswordReset)
	if err != nil {
		return nil, err
	}
	return &models.ForgotPasswordResult{
		ResetID:   resetID,
		ExpiresAt: expiresAt,
		Message:   "Password reset code sent to your phone",
	}, nil
}

// ResetPassword consumes the reset session and replaces the password hash.
func (s *Service) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (*models.MessageResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	outcome, err := s.verifier.Verify(ctx, vmodels.PurposePasswordReset, req.ResetID, req.Code)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByPhone(ctx, outcome.Phone)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}
	if err := s.limiter.ClearLoginFailures(ctx, user.Phone); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
	}
	s.emit(ctx, events.PasswordReset, user.ID.String(), nil)
	return &models.MessageResult{
		Message: "Password reset successful. You can now login with your new password.",
	}, nil
}

func (s *Service) issuePair(user *models.User) (*models.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID.String(), user.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, _, err := s.tokens.GenerateRefreshToken(user.ID.String(), user.Phone)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *Service) emit(ctx context.Context, t events.Type, subject string, attrs map[string]string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Emit(ctx, events.Event{
		Type:       t,
		Timestamp:  requestcontext.Now(ctx),
		Subject:    subject,
		RequestID:  requestcontext.RequestID(ctx),
		Attributes: attrs,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit event", "type", string(t), "error", err)
	}
}

// deviceLabel renders "Browser on OS" from the request's user agent.
func deviceLabel(ctx context.Context) string {
	raw := requestcontext.UserAgent(ctx)
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if ua.Mobile() {
		return browser + " on " + ua.OS() + " (mobile)"
	}
	return browser + " on " + ua.OS()
}
