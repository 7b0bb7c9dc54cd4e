package httputil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clarence/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "internal error hides its message",
			err:        dErrors.New(dErrors.CodeInternal, "db failed"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_error"}`,
		},
		{
			name:       "uncoded error is internal",
			err:        io.ErrUnexpectedEOF,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal_error"}`,
		},
		{
			name:       "bad request carries description",
			err:        dErrors.New(dErrors.CodeBadRequest, "invalid input"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"bad_request","error_description":"invalid input"}`,
		},
		{
			name:       "wrapped conflict",
			err:        dErrors.Wrap(io.EOF, dErrors.CodeConflict, "quote request already submitted"),
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"conflict","error_description":"quote request already submitted"}`,
		},
		{
			name:       "locked session",
			err:        dErrors.New(dErrors.CodeLocked, "too many attempts"),
			wantStatus: http.StatusLocked,
			wantBody:   `{"error":"locked","error_description":"too many attempts"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestWriteJSON_NilBodyWritesStatusOnly(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Phone string `json:"phone"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"+15551234567"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "+15551234567", dst.Phone)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":`))
	err := DecodeJSON(r, &dst)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
