package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsStatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantStatus int
		wantCode   Code
	}{
		{"missing token", MissingToken(), http.StatusUnauthorized, CodeMissingToken},
		{"invalid token", InvalidToken(errors.New("bad sig")), http.StatusUnauthorized, CodeInvalidToken},
		{"rate limit", RateLimitExceeded(), http.StatusTooManyRequests, CodeRateLimitExceeded},
		{"suspicious activity", SuspiciousActivity(), http.StatusForbidden, CodeSuspiciousActivity},
		{"invalid method", InvalidMethod("TRACE"), http.StatusMethodNotAllowed, CodeInvalidMethod},
		{"invalid content type", InvalidContentType(), http.StatusBadRequest, CodeInvalidContentType},
		{"request too large", RequestTooLarge(), http.StatusRequestEntityTooLarge, CodeRequestTooLarge},
		{"missing header", MissingHeader("User-Agent"), http.StatusBadRequest, CodeMissingHeader},
		{"security error", SecurityError(errors.New("panic")), http.StatusInternalServerError, CodeSecurityError},
		{"not found", NotFound("User"), http.StatusNotFound, CodeNotFound},
		{"validation failed", ValidationFailed("Validation failed", nil), http.StatusUnprocessableEntity, CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestWriteJSONWithRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	InvalidToken(errors.New("signature mismatch")).
		WriteJSONWithRequestID(rec, "req-42")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeInvalidToken, resp.Code)
	assert.Equal(t, "req-42", resp.RequestID)

	// The internal cause never reaches the wire.
	assert.NotContains(t, rec.Body.String(), "signature mismatch")
}

func TestErrorInterface(t *testing.T) {
	cause := errors.New("db down")
	err := InternalError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "db down")
}

func TestFromError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, FromError(nil))
	})

	t.Run("api error is preserved", func(t *testing.T) {
		original := NotFound("Entry")
		wrapped := fmt.Errorf("handler: %w", original)
		assert.Same(t, original, FromError(wrapped))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := FromError(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, got.Status)
		assert.Equal(t, CodeInternalError, got.Code)
	})
}

func TestValidationErrorsCollector(t *testing.T) {
	var verrs ValidationErrors
	assert.False(t, verrs.HasErrors())

	verrs.Add("username", "is required")
	verrs.Add("password", "too short")
	require.True(t, verrs.HasErrors())

	apiErr := verrs.ToAPIError()
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, CodeValidationFailed, apiErr.Code)
	assert.Equal(t, verrs, apiErr.Details)
}
