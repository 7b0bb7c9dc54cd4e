package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "clarence/pkg/domain-errors"
)

// TokenType distinguishes the three kinds of token the issuer signs.
type TokenType string

const (
	TypeVerification TokenType = "verification"
	TypeAccess       TokenType = "access"
	TypeRefresh      TokenType = "refresh"
)

const VerificationTokenTTL = 15 * time.Minute

// VerificationClaims prove a phone passed a verification session.
type VerificationClaims struct {
	Phone   string    `json:"phone"`
	Purpose string    `json:"purpose"`
	Type    TokenType `json:"type"`
	jwt.RegisteredClaims
}

// AccessClaims authenticate API calls.
type AccessClaims struct {
	Phone string    `json:"phone"`
	Type  TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID is the subject claim.
func (c *AccessClaims) UserID() string { return c.Subject }

// RefreshClaims carry a jti so individual refresh tokens can be revoked.
type RefreshClaims struct {
	Phone string    `json:"phone"`
	Type  TokenType `json:"type"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 tokens. Refresh tokens use their own
// secret so an access-token key leak cannot mint refresh tokens.
type JWTService struct {
	signingKey      []byte
	refreshKey      []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	clock           func() time.Time
}

type Option func(*JWTService)

func WithClock(clock func() time.Time) Option {
	return func(s *JWTService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithTTLs(access, refresh time.Duration) Option {
	return func(s *JWTService) {
		if access > 0 {
			s.accessTokenTTL = access
		}
		if refresh > 0 {
			s.refreshTokenTTL = refresh
		}
	}
}

func NewJWTService(signingKey, refreshKey, issuer string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey:      []byte(signingKey),
		refreshKey:      []byte(refreshKey),
		issuer:          issuer,
		accessTokenTTL:  15 * time.Minute,
		refreshTokenTTL: 7 * 24 * time.Hour,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JWTService) AccessTokenTTL() time.Duration  { return s.accessTokenTTL }
func (s *JWTService) RefreshTokenTTL() time.Duration { return s.refreshTokenTTL }

func (s *JWTService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.clock()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func sign(claims jwt.Claims, key []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

func (s *JWTService) GenerateVerificationToken(phone, purpose string) (string, error) {
	return sign(VerificationClaims{
		Phone:            phone,
		Purpose:          purpose,
		Type:             TypeVerification,
		RegisteredClaims: s.registered("", VerificationTokenTTL),
	}, s.signingKey)
}

func (s *JWTService) GenerateAccessToken(userID, phone string) (string, error) {
	return sign(AccessClaims{
		Phone:            phone,
		Type:             TypeAccess,
		RegisteredClaims: s.registered(userID, s.accessTokenTTL),
	}, s.signingKey)
}

// GenerateRefreshToken returns the signed token and its jti.
func (s *JWTService) GenerateRefreshToken(userID, phone string) (string, string, error) {
	claims := RefreshClaims{
		Phone:            phone,
		Type:             TypeRefresh,
		RegisteredClaims: s.registered(userID, s.refreshTokenTTL),
	}
	signed, err := sign(claims, s.refreshKey)
	if err != nil {
		return "", "", err
	}
	return signed, claims.ID, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, key []byte) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	}, jwt.WithTimeFunc(s.clock), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return nil
}

func wrongType() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid token type")
}

func (s *JWTService) ValidateVerificationToken(tokenString string) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	if err := s.parse(tokenString, claims, s.signingKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeVerification {
		return nil, wrongType()
	}
	return claims, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.signingKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || claims.Subject == "" {
		return nil, wrongType()
	}
	return claims, nil
}

func (s *JWTService) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh || claims.ID == "" || claims.Subject == "" {
		return nil, wrongType()
	}
	return claims, nil
}
