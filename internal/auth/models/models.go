package models

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
)

// AccountStatus gates login.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountLocked    AccountStatus = "locked"
	AccountSuspended AccountStatus = "suspended"
)

// User is a phone-registered account.
type User struct {
	ID            id.UserID
	Phone         string
	PasswordHash  string
	Email         string
	FirstName     string
	LastName      string
	AccountStatus AccountStatus
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var phonePattern = regexp.MustCompile(`^\+1\d{10}$`)

// ValidatePhone accepts US numbers in +1XXXXXXXXXX form.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return dErrors.New(dErrors.CodeValidation, "Phone number must be in format +1XXXXXXXXXX")
	}
	return nil
}

// ValidatePassword requires eight characters with upper and lower case
// letters and at least one digit or symbol.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return dErrors.New(dErrors.CodeValidation, "Password must be at least 8 characters")
	}
	var upper, lower, digitOrSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r), unicode.IsPunct(r), unicode.IsSymbol(r):
			digitOrSymbol = true
		}
	}
	if !upper || !lower || !digitOrSymbol {
		return dErrors.New(dErrors.CodeValidation,
			"Password must contain uppercase, lowercase, and a number or special character")
	}
	return nil
}

func validatePurpose(purpose string) error {
	if purpose != "registration" && purpose != "password_reset" {
		return dErrors.New(dErrors.CodeValidation, "purpose must be registration or password_reset")
	}
	return nil
}

// CheckPhoneRequest asks whether a phone is already registered.
type CheckPhoneRequest struct {
	Phone string `json:"phone"`
}

func (r *CheckPhoneRequest) Validate() error {
	r.Phone = strings.TrimSpace(r.Phone)
	return ValidatePhone(r.Phone)
}

type CheckPhoneResult struct {
	Exists  bool   `json:"exists"`
	Message string `json:"message"`
}

// SendCodeRequest starts a verification session.
type SendCodeRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose,omitempty"`
}

func (r *SendCodeRequest) Validate() error {
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Purpose == "" {
		r.Purpose = "registration"
	}
	if err := validatePurpose(r.Purpose); err != nil {
		return err
	}
	return ValidatePhone(r.Phone)
}

type SendCodeResult struct {
	VerificationID string    `json:"verificationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Message        string    `json:"message"`
}

// VerifyCodeRequest consumes one attempt against a session.
type VerifyCodeRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
	Purpose        string `json:"purpose,omitempty"`
}

func (r *VerifyCodeRequest) Validate() error {
	if strings.TrimSpace(r.VerificationID) == "" {
		return dErrors.New(dErrors.CodeValidation, "verificationId is required")
	}
	if len(r.Code) != 6 {
		return dErrors.New(dErrors.CodeValidation, "code must be 6 digits")
	}
	if r.Purpose == "" {
		r.Purpose = "registration"
	}
	return validatePurpose(r.Purpose)
}

type VerifyCodeResult struct {
	Verified          bool      `json:"verified"`
	VerificationToken string    `json:"verificationToken"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// RegisterRequest creates an account from a verification token.
type RegisterRequest struct {
	VerificationToken string `json:"verificationToken"`
	Password          string `json:"password"`
	Email             string `json:"email,omitempty"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if r.VerificationToken == "" {
		return dErrors.New(dErrors.CodeValidation, "verificationToken is required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return ValidatePassword(r.Password)
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return ValidatePhone(r.Phone)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *RefreshRequest) Validate() error {
	if r.RefreshToken == "" {
		return dErrors.New(dErrors.CodeValidation, "refreshToken is required")
	}
	return nil
}

type ForgotPasswordRequest struct {
	Phone string `json:"phone"`
}

func (r *ForgotPasswordRequest) Validate() error {
	r.Phone = strings.TrimSpace(r.Phone)
	return ValidatePhone(r.Phone)
}

type ForgotPasswordResult struct {
	ResetID   string    `json:"resetId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message"`
}

type ResetPasswordRequest struct {
	ResetID     string `json:"resetId"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (r *ResetPasswordRequest) Validate() error {
	if strings.TrimSpace(r.ResetID) == "" {
		return dErrors.New(dErrors.CodeValidation, "resetId is required")
	}
	if len(r.Code) != 6 {
		return dErrors.New(dErrors.CodeValidation, "code must be 6 digits")
	}
	return ValidatePassword(r.NewPassword)
}

type MessageResult struct {
	Message string `json:"message"`
}

// TokenPair is returned by register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// UserView is the public projection of a User.
type UserView struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserView(u *User) UserView {
	return UserView{
		ID:        u.ID.String(),
		Phone:     u.Phone,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

type AuthResult struct {
	User   UserView  `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
