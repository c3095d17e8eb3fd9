package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/metrics"
)

// Metrics records request counts, latency and in-flight gauge.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip the metrics endpoint itself
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.HTTPRequestsInFlight.Inc()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			metrics.HTTPRequestsInFlight.Dec()

			// Collapse IDs to keep label cardinality bounded.
			path := normalizePath(r.URL.Path)

			metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(wrapped.statusCode),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath replaces dynamic path segments with a placeholder so
// metric labels stay low cardinality.
func normalizePath(path string) string {
	out := make([]byte, 0, len(path))
	i := 0
	for i < len(path) {
		if path[i] != '/' {
			out = append(out, path[i])
			i++
			continue
		}

		out = append(out, '/')
		i++
		start := i
		for i < len(path) && path[i] != '/' {
			i++
		}
		segment := path[start:i]
		if looksLikeID(segment) {
			out = append(out, "{id}"...)
		} else {
			out = append(out, segment...)
		}
	}
	return string(out)
}

func looksLikeID(s string) bool {
	if s == "" {
		return false
	}

	// UUID form: 36 chars, 4 dashes, hex elsewhere.
	if len(s) == 36 {
		dashes := 0
		hex := true
		for _, c := range s {
			switch {
			case c == '-':
				dashes++
			case (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
			default:
				hex = false
			}
		}
		if hex && dashes == 4 {
			return true
		}
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) <= 20
}
