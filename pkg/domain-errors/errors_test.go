package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "quote not found")
		assert.True(t, Is(err, CodeNotFound))
		assert.False(t, Is(err, CodeConflict))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("bind: %w", New(CodeExpired, "quote has expired"))
		assert.True(t, Is(err, CodeExpired))
	})

	t.Run("matches inner domain error", func(t *testing.T) {
		inner := New(CodeRateLimited, "slow down")
		err := Wrap(inner, CodeInternal, "send code")
		assert.True(t, Is(err, CodeInternal))
		assert.True(t, Is(err, CodeRateLimited))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, Is(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:      http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeTooManyAttempts: http.StatusTooManyRequests,
		CodeLocked:          http.StatusLocked,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), code)
	}
}
