package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "clarence/pkg/domain-errors"
)

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("+15551234567"))
	for _, bad := range []string{"", "5551234567", "+445551234567", "+1555123456", "+1555123456a"} {
		err := ValidatePhone(bad)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation), bad)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Secret123", true},
		{"Secret!!x", true},
		{"short1A", false},
		{"alllowercase1", false},
		{"ALLUPPERCASE1", false},
		{"NoDigitsHere", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSendCodeRequest_DefaultsPurpose(t *testing.T) {
	req := SendCodeRequest{Phone: " +15551234567 "}
	assert.NoError(t, req.Validate())
	assert.Equal(t, "registration", req.Purpose)
	assert.Equal(t, "+15551234567", req.Phone)

	req = SendCodeRequest{Phone: "+15551234567", Purpose: "marketing"}
	assert.Error(t, req.Validate())
}
