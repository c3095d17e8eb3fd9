package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maegy2011/FMS-sub000/pkg/token"
)

func testTokenService() *token.Service {
	return token.NewService(token.Config{
		Secret:   "middleware-test-secret-needs-length!",
		Issuer:   "fms-test",
		Lifetime: time.Hour,
	})
}

func TestAuthenticate(t *testing.T) {
	tokens := testTokenService()

	var gotUserID, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotRole = GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticate(tokens, testEventService())(inner)

	t.Run("valid token populates context", func(t *testing.T) {
		signed, _, err := tokens.Issue("user-123", "admin")
		require.NoError(t, err)

		r := newRequest(http.MethodGet, "/api/v1/entries")
		r.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-123", gotUserID)
		assert.Equal(t, "admin", gotRole)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/entries"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "MISSING_TOKEN", decodeErrorCode(t, rec.Body.String()))
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		r := newRequest(http.MethodGet, "/api/v1/entries")
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "MISSING_TOKEN", decodeErrorCode(t, rec.Body.String()))
	})

	t.Run("garbage token", func(t *testing.T) {
		r := newRequest(http.MethodGet, "/api/v1/entries")
		r.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", decodeErrorCode(t, rec.Body.String()))
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := token.NewService(token.Config{
			Secret:   "a-different-secret-of-enough-length!",
			Lifetime: time.Hour,
		})
		signed, _, err := other.Issue("user-123", "user")
		require.NoError(t, err)

		r := newRequest(http.MethodGet, "/api/v1/entries")
		r.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	tokens := testTokenService()
	events := testEventService()

	protected := Authenticate(tokens, events)(RequireRole(events, "admin")(okHandler()))

	send := func(role string) *httptest.ResponseRecorder {
		signed, _, err := tokens.Issue("user-123", role)
		require.NoError(t, err)

		r := newRequest(http.MethodGet, "/api/v1/security-events")
		r.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("admin").Code)
	assert.Equal(t, http.StatusForbidden, send("user").Code)
}
