package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks total HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks requests currently being handled
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being handled",
		},
	)
)

// Gate metrics
var (
	// SecurityEventsTotal tracks recorded security events by kind
	SecurityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Total number of security events recorded by kind",
		},
		[]string{"kind"},
	)

	// GateRejectionsTotal tracks requests rejected by the gate by stage
	GateRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_rejections_total",
			Help: "Total number of requests rejected by the security gate",
		},
		[]string{"stage"},
	)

	// RateLimitRejectionsTotal tracks rate-limited requests by limiter class
	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of rate-limited requests by limiter class",
		},
		[]string{"class"},
	)

	// SuspicionRejectionsTotal tracks suspicious-activity rejections by heuristic
	SuspicionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suspicion_rejections_total",
			Help: "Total number of suspicious-activity rejections by heuristic",
		},
		[]string{"heuristic"},
	)
)

// Auth and recovery metrics
var (
	// AuthFailuresTotal tracks authentication failures by reason
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of authentication failures by reason",
		},
		[]string{"reason"},
	)

	// CaptchaIssuedTotal tracks issued captcha sessions
	CaptchaIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "captcha_issued_total",
			Help: "Total number of captcha sessions issued",
		},
	)

	// CaptchaVerifiedTotal tracks captcha verification outcomes
	CaptchaVerifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captcha_verified_total",
			Help: "Total number of captcha verifications by result",
		},
		[]string{"result"},
	)

	// RecoveryAttemptsTotal tracks recovery protocol steps by step and result
	RecoveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_attempts_total",
			Help: "Total number of account recovery attempts by step and result",
		},
		[]string{"step", "result"},
	)
)
