package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
)

// mapCounterStore is an inline fixed-window store without sweeping.
type mapCounterStore struct {
	counts map[string]int64
}

func (s *mapCounterStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[key]++
	return s.counts[key], nil
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := app.NewRateLimiter(&mapCounterStore{}, app.DefaultPolicies(), logger.NewNop())
	handler := RateLimit(limiter, testEventService())(okHandler())

	send := func(path, ip string) *httptest.ResponseRecorder {
		r := newRequest(http.MethodPost, path)
		r.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	// Login allows five per window and exposes the remaining budget.
	for i := 0; i < 5; i++ {
		rec := send("/auth/login", "203.0.113.9")
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := send("/auth/login", "203.0.113.9")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeErrorCode(t, rec.Body.String()))
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Another IP is unaffected.
	assert.Equal(t, http.StatusOK, send("/auth/login", "203.0.113.10").Code)

	// The same IP can still reach other classes.
	assert.Equal(t, http.StatusOK, send("/api/v1/entries", "203.0.113.9").Code)
}

func TestRateLimitSkipsMonitoringEndpoints(t *testing.T) {
	store := &mapCounterStore{}
	limiter := app.NewRateLimiter(store, app.DefaultPolicies(), logger.NewNop())
	handler := RateLimit(limiter, testEventService())(okHandler())

	send := func(path string) *httptest.ResponseRecorder {
		r := newRequest(http.MethodGet, path)
		r.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	// Probes and scrapes hammer these paths far past any window budget.
	for i := 0; i < 150; i++ {
		for _, path := range []string{"/health", "/ready", "/metrics"} {
			rec := send(path)
			require.Equal(t, http.StatusOK, rec.Code, path)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"), path)
		}
	}
	assert.Empty(t, store.counts, "monitoring traffic must not touch the counter store")

	// The generic-api budget of the same IP is untouched.
	rec := send("/api/v1/entries")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestSuspicionGuardMiddleware(t *testing.T) {
	events := testEventService()
	detector := app.NewSuspicionDetector(events, 10, time.Hour, logger.NewNop())
	handler := SuspicionGuard(detector, events)(okHandler())

	t.Run("browser passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/entries"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("automation user agent rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
		r.Header.Set("User-Agent", "Googlebot/2.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "SUSPICIOUS_ACTIVITY", decodeErrorCode(t, rec.Body.String()))
		assert.NotContains(t, rec.Body.String(), "user_agent", "heuristic must not leak")
	})

	t.Run("monitoring endpoints are exempt", func(t *testing.T) {
		for _, path := range []string{"/health", "/ready", "/metrics"} {
			r := httptest.NewRequest(http.MethodGet, path, nil)
			r.Header.Set("User-Agent", "Googlebot/2.1")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}
