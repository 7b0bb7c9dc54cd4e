package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"clarence/internal/auth/models"
	"clarence/internal/auth/service/mocks"
	"clarence/internal/auth/store/revocation"
	userstore "clarence/internal/auth/store/user"
	jwttoken "clarence/internal/jwt_token"
	ratelimitservice "clarence/internal/ratelimit/service"
	ratelimitstore "clarence/internal/ratelimit/store"
	verificationservice "clarence/internal/verification/service"
	verificationstore "clarence/internal/verification/store"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/events"
	"clarence/pkg/requestcontext"
)

const (
	testPhone    = "+15551234567"
	testPassword = "Secret123"
	testCode     = "123456"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSender) Send(_ context.Context, _, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	service   *Service
	users     *userstore.InMemoryUserStore
	sender    *recordingSender
	publisher *events.MemoryPublisher
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.users = userstore.New()
	s.sender = &recordingSender{}
	s.publisher = events.NewMemoryPublisher()

	verifier := verificationservice.New(verificationstore.NewInMemoryStore(), s.sender,
		verificationservice.WithCodeGenerator(func() (string, error) { return testCode, nil }))
	limiter, err := ratelimitservice.New(ratelimitstore.NewInMemory(nil))
	s.Require().NoError(err)
	tokens := jwttoken.NewJWTService("access-secret", "refresh-secret", "clarence")

	s.service, err = New(s.users, verifier, limiter, tokens, revocation.NewInMemory(nil),
		WithPublisher(s.publisher),
		WithBcryptCost(bcrypt.MinCost),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) verificationToken(ctx context.Context, phone string) string {
	sent, err := s.service.SendCode(ctx, &models.SendCodeRequest{Phone: phone})
	s.Require().NoError(err)
	verified, err := s.service.VerifyCode(ctx, &models.VerifyCodeRequest{VerificationID: sent.VerificationID, Code: testCode})
	s.Require().NoError(err)
	s.Require().True(verified.Verified)
	return verified.VerificationToken
}

func (s *ServiceSuite) register(ctx context.Context, phone string) *models.AuthResult {
	res, err := s.service.Register(ctx, &models.RegisterRequest{
		VerificationToken: s.verificationToken(ctx, phone),
		Password:          testPassword,
		FirstName:         "Ada",
	})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestCheckPhone() {
	ctx := context.Background()

	res, err := s.service.CheckPhone(ctx, &models.CheckPhoneRequest{Phone: testPhone})
	s.Require().NoError(err)
	s.False(res.Exists)
	s.Equal("Phone number is available", res.Message)

	s.register(ctx, testPhone)
	res, err = s.service.CheckPhone(ctx, &models.CheckPhoneRequest{Phone: testPhone})
	s.Require().NoError(err)
	s.True(res.Exists)

	_, err = s.service.CheckPhone(ctx, &models.CheckPhoneRequest{Phone: "555"})
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSendCode() {
	ctx := context.Background()

	s.Run("code is delivered but never returned", func() {
		res, err := s.service.SendCode(ctx, &models.SendCodeRequest{Phone: testPhone})
		s.Require().NoError(err)
		s.NotEmpty(res.VerificationID)
		s.Equal("Verification code sent to your phone", res.Message)
		s.Require().NotEmpty(s.sender.messages)
		s.Contains(s.sender.messages[len(s.sender.messages)-1], testCode)
	})

	s.Run("fourth send within the hour is rate limited", func() {
		phone := "+15550001111"
		for range 3 {
			_, err := s.service.SendCode(ctx, &models.SendCodeRequest{Phone: phone})
			s.Require().NoError(err)
		}
		_, err := s.service.SendCode(ctx, &models.SendCodeRequest{Phone: phone})
		s.True(dErrors.Is(err, dErrors.CodeRateLimited))
	})
}

func (s *ServiceSuite) TestRegister() {
	ctx := context.Background()

	s.Run("creates account and token pair", func() {
		res := s.register(ctx, testPhone)
		s.Equal(testPhone, res.User.Phone)
		s.Equal("Ada", res.User.FirstName)
		s.NotEmpty(res.Tokens.AccessToken)
		s.NotEmpty(res.Tokens.RefreshToken)
		s.Equal(900, res.Tokens.ExpiresIn)
		s.Len(s.publisher.OfType(events.UserRegistered), 1)

		stored, err := s.users.FindByPhone(ctx, testPhone)
		s.Require().NoError(err)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(testPassword)))
	})

	s.Run("duplicate phone conflicts", func() {
		_, err := s.service.Register(ctx, &models.RegisterRequest{
			VerificationToken: s.verificationToken(ctx, testPhone),
			Password:          testPassword,
		})
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("garbage token rejected", func() {
		_, err := s.service.Register(ctx, &models.RegisterRequest{VerificationToken: "nope", Password: testPassword})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("weak password rejected before token check", func() {
		_, err := s.service.Register(ctx, &models.RegisterRequest{VerificationToken: "nope", Password: "weak"})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestLogin() {
	ctx := context.Background()
	s.register(ctx, testPhone)

	s.Run("succeeds with correct password", func() {
		ctx := requestcontext.WithClientMetadata(ctx, "10.0.0.1",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
		res, err := s.service.Login(ctx, &models.LoginRequest{Phone: testPhone, Password: testPassword})
		s.Require().NoError(err)
		s.NotEmpty(res.Tokens.AccessToken)

		succeeded := s.publisher.OfType(events.LoginSucceeded)
		s.Require().Len(succeeded, 1)
		s.Contains(succeeded[0].Attributes["device"], "Chrome")
	})

	s.Run("unknown phone and wrong password fail the same way", func() {
		_, errUnknown := s.service.Login(ctx, &models.LoginRequest{Phone: "+15559998888", Password: testPassword})
		_, errWrong := s.service.Login(ctx, &models.LoginRequest{Phone: testPhone, Password: "Wrong1234"})
		s.True(dErrors.Is(errUnknown, dErrors.CodeUnauthorized))
		s.True(dErrors.Is(errWrong, dErrors.CodeUnauthorized))
		s.Equal(errUnknown.Error(), errWrong.Error())
	})
}

func (s *ServiceSuite) TestLoginLockout() {
	ctx := context.Background()
	s.register(ctx, testPhone)

	for range 5 {
		_, err := s.service.Login(ctx, &models.LoginRequest{Phone: testPhone, Password: "Wrong1234"})
		s.Require().True(dErrors.Is(err, dErrors.CodeUnauthorized))
	}

	_, err := s.service.Login(ctx, &models.LoginRequest{Phone: testPhone, Password: testPassword})
	s.True(dErrors.Is(err, dErrors.CodeLocked), "correct password is refused while locked")
	s.Len(s.publisher.OfType(events.LoginFailed), 5)
}

func (s *ServiceSuite) TestRefreshRotation() {
	ctx := context.Background()
	first := s.register(ctx, testPhone).Tokens

	second, err := s.service.Refresh(ctx, &models.RefreshRequest{RefreshToken: first.RefreshToken})
	s.Require().NoError(err)
	s.NotEqual(first.RefreshToken, second.RefreshToken)

	_, err = s.service.Refresh(ctx, &models.RefreshRequest{RefreshToken: first.RefreshToken})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "Token has been revoked")

	_, err = s.service.Refresh(ctx, &models.RefreshRequest{RefreshToken: first.AccessToken})
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized), "access token is not a refresh token")
}

func (s *ServiceSuite) TestRefreshConcurrentRotationIsSingleUse() {
	ctx := context.Background()
	first := s.register(ctx, testPhone).Tokens

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rotated  int
		rejected int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Refresh(ctx, &models.RefreshRequest{RefreshToken: first.RefreshToken})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				rotated++
			case dErrors.Is(err, dErrors.CodeUnauthorized):
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, rotated, "one refresh token yields one new pair")
	s.Equal(callers-1, rejected)
}

func (s *ServiceSuite) TestLogout() {
	ctx := context.Background()
	tokens := s.register(ctx, testPhone).Tokens

	res, err := s.service.Logout(ctx, &models.RefreshRequest{RefreshToken: tokens.RefreshToken})
	s.Require().NoError(err)
	s.NotEmpty(res.Message)

	_, err = s.service.Refresh(ctx, &models.RefreshRequest{RefreshToken: tokens.RefreshToken})
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	s.Run("malformed token still succeeds", func() {
		_, err := s.service.Logout(ctx, &models.RefreshRequest{RefreshToken: "not-a-jwt"})
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestPasswordReset() {
	ctx := context.Background()

	s.Run("unknown phone", func() {
		_, err := s.service.ForgotPassword(ctx, &models.ForgotPasswordRequest{Phone: testPhone})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.register(ctx, testPhone)
	forgot, err := s.service.ForgotPassword(ctx, &models.ForgotPasswordRequest{Phone: testPhone})
	s.Require().NoError(err)
	s.Equal("Password reset code sent to your phone", forgot.Message)

	s.Run("registration session id is not a reset id", func() {
		sent, err := s.service.SendCode(ctx, &models.SendCodeRequest{Phone: testPhone})
		s.Require().NoError(err)
		_, err = s.service.ResetPassword(ctx, &models.ResetPasswordRequest{
			ResetID: sent.VerificationID, Code: testCode, NewPassword: "Another123",
		})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	res, err := s.service.ResetPassword(ctx, &models.ResetPasswordRequest{
		ResetID: forgot.ResetID, Code: testCode, NewPassword: "Changed123",
	})
	s.Require().NoError(err)
	s.Contains(res.Message, "Password reset successful")

	_, err = s.service.Login(ctx, &models.LoginRequest{Phone: testPhone, Password: "Changed123"})
	s.NoError(err)
	_, err = s.service.Login(ctx, &models.LoginRequest{Phone: testPhone, Password: testPassword})
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestRegister_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	limiter := mocks.NewMockLimiter(ctrl)
	tokens := mocks.NewMockTokenIssuer(ctrl)
	revoked := mocks.NewMockRevocationList(ctrl)

	svc, err := New(users, verifier, limiter, tokens, revoked, WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatal(err)
	}

	tokens.EXPECT().ValidateVerificationToken("vt").Return(&jwttoken.VerificationClaims{
		Phone: testPhone, Purpose: "registration", Type: jwttoken.TypeVerification,
	}, nil)
	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err = svc.Register(context.Background(), &models.RegisterRequest{VerificationToken: "vt", Password: testPassword})
	if !dErrors.Is(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestLogin_LockedSkipsPasswordCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	limiter := mocks.NewMockLimiter(ctrl)

	svc, err := New(users, mocks.NewMockVerifier(ctrl), limiter, mocks.NewMockTokenIssuer(ctrl), mocks.NewMockRevocationList(ctrl))
	if err != nil {
		t.Fatal(err)
	}

	limiter.EXPECT().CheckLogin(gomock.Any(), testPhone).
		Return(dErrors.New(dErrors.CodeLocked, "Account temporarily locked. Please try again in 15 minutes."))

	_, err = svc.Login(context.Background(), &models.LoginRequest{Phone: testPhone, Password: testPassword})
	if !dErrors.Is(err, dErrors.CodeLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRefresh_LostClaimIssuesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mocks.NewMockTokenIssuer(ctrl)
	revoked := mocks.NewMockRevocationList(ctrl)
	users := mocks.NewMockUserStore(ctrl)

	svc, err := New(users, mocks.NewMockVerifier(ctrl), mocks.NewMockLimiter(ctrl), tokens, revoked)
	if err != nil {
		t.Fatal(err)
	}

	userID := id.NewUserID()
	claims := &jwttoken.RefreshClaims{Phone: testPhone, Type: jwttoken.TypeRefresh}
	claims.ID = "jti-1"
	claims.Subject = userID.String()
	tokens.EXPECT().ValidateRefreshToken("rt").Return(claims, nil)
	tokens.EXPECT().RefreshTokenTTL().Return(time.Hour)
	revoked.EXPECT().RevokeIfAbsent(gomock.Any(), "jti-1", time.Hour).Return(false, nil)

	_, err = svc.Refresh(context.Background(), &models.RefreshRequest{RefreshToken: "rt"})
	if !dErrors.Is(err, dErrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
