package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
)

// nopEventRepo satisfies the event repository without persistence.
type nopEventRepo struct{}

func (nopEventRepo) Insert(context.Context, secevent.Event) error { return nil }
func (nopEventRepo) CountRecent(context.Context, string, []secevent.Kind, time.Time) (int, error) {
	return 0, nil
}
func (nopEventRepo) List(context.Context, app.EventFilter, pagination.Pagination) ([]secevent.Event, int64, error) {
	return nil, 0, nil
}

func testEventService() *app.SecurityEventService {
	return app.NewSecurityEventService(nopEventRepo{}, logger.NewNop())
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func newRequest(method, path string) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	r.Header.Set("User-Agent", "Mozilla/5.0")
	return r
}

func decodeErrorCode(t *testing.T, body string) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp.Code
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/entries"))

	want := map[string]string{
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Permissions-Policy":      "camera=(), microphone=(), geolocation=()",
	}
	for name, value := range want {
		assert.Equal(t, value, rec.Header().Get(name), name)
	}
}

func TestSecurityHeadersPresentOnRejection(t *testing.T) {
	// Headers run before the method check, so a rejected request still
	// carries them.
	handler := SecurityHeaders()(MethodAllowList(testEventService())(okHandler()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest("TRACE", "/api/v1/entries"))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMethodAllowList(t *testing.T) {
	handler := MethodAllowList(testEventService())(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest(method, "/x"))
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}

	for _, method := range []string{"TRACE", "OPTIONS", "HEAD", "CONNECT"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest(method, "/x"))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "INVALID_METHOD", decodeErrorCode(t, rec.Body.String()))
	}
}

func TestContentTypeCheck(t *testing.T) {
	handler := ContentTypeCheck(testEventService())(okHandler())

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"json post", http.MethodPost, "application/json", http.StatusOK},
		{"json with charset", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"multipart", http.MethodPost, "multipart/form-data; boundary=x", http.StatusOK},
		{"plain text post", http.MethodPost, "text/plain", http.StatusBadRequest},
		{"missing content type on put", http.MethodPut, "", http.StatusBadRequest},
		{"get needs no content type", http.MethodGet, "", http.StatusOK},
		{"delete needs no content type", http.MethodDelete, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(tt.method, "/x")
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.Equal(t, "INVALID_CONTENT_TYPE", decodeErrorCode(t, rec.Body.String()))
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	const limit = 10 << 20

	handler := BodyLimit(limit, testEventService())(okHandler())

	t.Run("declared oversize is rejected without reading", func(t *testing.T) {
		r := newRequest(http.MethodPost, "/x")
		r.ContentLength = limit + 1
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "REQUEST_TOO_LARGE", decodeErrorCode(t, rec.Body.String()))
	})

	t.Run("declared size at limit passes", func(t *testing.T) {
		r := newRequest(http.MethodPost, "/x")
		r.ContentLength = limit
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("undeclared body is capped at read time", func(t *testing.T) {
		reader := func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 64)
			if _, err := r.Body.Read(buf); err != nil {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
		small := BodyLimit(8, testEventService())(http.HandlerFunc(reader))

		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("well over eight bytes"))
		r.Header.Set("User-Agent", "Mozilla/5.0")
		r.ContentLength = -1
		rec := httptest.NewRecorder()
		small.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestRequiredHeaders(t *testing.T) {
	handler := RequiredHeaders(testEventService())(okHandler())

	t.Run("well-formed request passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest(http.MethodGet, "/x"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing user agent", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MISSING_HEADER", decodeErrorCode(t, rec.Body.String()))
	})

	t.Run("missing host", func(t *testing.T) {
		r := newRequest(http.MethodGet, "/x")
		r.Host = ""
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestID()(inner)

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest(http.MethodGet, "/x"))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates client value", func(t *testing.T) {
		r := newRequest(http.MethodGet, "/x")
		r.Header.Set("X-Request-ID", "client-supplied-id")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		assert.Equal(t, "client-supplied-id", seen)
		assert.Equal(t, "client-supplied-id", rec.Header().Get("X-Request-ID"))
	})
}

func TestRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := Recovery(logger.NewNop(), testEventService(), true)(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(http.MethodGet, "/x"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "SECURITY_ERROR", decodeErrorCode(t, rec.Body.String()))
	assert.NotContains(t, rec.Body.String(), "boom", "panic detail must not leak")
}

func TestClientIP(t *testing.T) {
	r := newRequest(http.MethodGet, "/x")
	r.RemoteAddr = "203.0.113.9:54321"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}
