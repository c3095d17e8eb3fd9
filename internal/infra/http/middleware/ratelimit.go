package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
)

// apiSurface reports whether the path belongs to the limited API
// surface. Monitoring endpoints (/health, /ready, /metrics) sit outside
// it: liveness probes and scrapes must not consume limiter budget or
// trip the suspicion heuristics for their source IP.
func apiSurface(path string) bool {
	return strings.HasPrefix(path, "/auth") || strings.HasPrefix(path, "/api")
}

// RateLimit admits requests against the fixed-window limiter. The
// limiter class is derived from the request path, the client key from
// the resolved source IP. Denials answer 429 with a Retry-After hint.
// Paths outside the API surface bypass the limiter.
func RateLimit(limiter *app.RateLimiter, events *app.SecurityEventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !apiSurface(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			class := app.ClassifyPath(r.URL.Path)
			ip := ClientIP(r)

			decision := limiter.Admit(r.Context(), class, ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				events.Record(secevent.New(
					time.Now(),
					ip,
					r.UserAgent(),
					secevent.KindRateLimitExceeded,
					"class="+class.String()+" path="+r.URL.Path,
				))
				metrics.RateLimitRejectionsTotal.WithLabelValues(class.String()).Inc()

				apierror.RateLimitExceeded().
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
