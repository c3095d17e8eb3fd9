package middleware

import (
	"net/http"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
)

// SuspicionGuard rejects requests whose client looks like automated
// tooling or whose source IP accumulated too many recent failures.
// The rejection body names no heuristic; that detail stays in the
// event log. Like the rate limiter, the guard covers only the API
// surface; monitoring endpoints pass through.
func SuspicionGuard(detector *app.SuspicionDetector, events *app.SecurityEventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !apiSurface(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			userAgent := r.UserAgent()

			suspicious, heuristic := detector.IsSuspicious(r.Context(), ip, userAgent)
			if suspicious {
				events.Record(secevent.New(
					time.Now(),
					ip,
					userAgent,
					secevent.KindSuspiciousActivity,
					"heuristic="+heuristic+" path="+r.URL.Path,
				))
				metrics.SuspicionRejectionsTotal.WithLabelValues(heuristic).Inc()

				apierror.SuspiciousActivity().
					WriteJSONWithRequestID(w, GetRequestID(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
