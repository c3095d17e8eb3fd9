package app

import (
	"context"
	"strings"
	"time"

	"github.com/maegy2011/FMS-sub000/pkg/logger"
)

// LimiterClass identifies a rate limit policy.
type LimiterClass string

const (
	ClassLogin      LimiterClass = "login"
	ClassRegister   LimiterClass = "register"
	ClassCaptcha    LimiterClass = "captcha"
	ClassGenericAPI LimiterClass = "generic-api"
)

// String returns the string representation of the limiter class.
func (c LimiterClass) String() string {
	return string(c)
}

// LimitPolicy is a fixed-window admission policy.
type LimitPolicy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicies returns the per-class admission policies.
func DefaultPolicies() map[LimiterClass]LimitPolicy {
	return map[LimiterClass]LimitPolicy{
		ClassLogin:      {MaxRequests: 5, Window: 15 * time.Minute},
		ClassRegister:   {MaxRequests: 3, Window: 60 * time.Minute},
		ClassCaptcha:    {MaxRequests: 10, Window: 5 * time.Minute},
		ClassGenericAPI: {MaxRequests: 100, Window: 15 * time.Minute},
	}
}

// ClassifyPath maps a request path to its limiter class.
func ClassifyPath(path string) LimiterClass {
	switch {
	case strings.Contains(path, "/auth/login"):
		return ClassLogin
	case strings.Contains(path, "/auth/register"):
		return ClassRegister
	case strings.Contains(path, "/auth/captcha"):
		return ClassCaptcha
	default:
		return ClassGenericAPI
	}
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// CounterStore holds fixed-window counters keyed by (class, clientKey).
// Incr must be atomic per key: if no window exists or the current
// window has elapsed, a new window starts at count 1; otherwise the
// count is incremented. A window starting exactly at the boundary
// belongs to the new window.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter decides admission per (class, clientKey) using
// fixed-window counting. It holds no global state; construct one per
// process and inject it into the gate.
type RateLimiter struct {
	store    CounterStore
	policies map[LimiterClass]LimitPolicy
	log      *logger.Logger
}

// NewRateLimiter creates a rate limiter over the given store.
func NewRateLimiter(store CounterStore, policies map[LimiterClass]LimitPolicy, log *logger.Logger) *RateLimiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &RateLimiter{
		store:    store,
		policies: policies,
		log:      log,
	}
}

// Policy returns the policy for a class, falling back to generic-api.
// A caller-supplied policy map may omit classes; the built-in
// generic-api policy is the floor so an incomplete map can never yield
// a zero policy that denies everything.
func (l *RateLimiter) Policy(class LimiterClass) LimitPolicy {
	if p, ok := l.policies[class]; ok {
		return p
	}
	if p, ok := l.policies[ClassGenericAPI]; ok {
		return p
	}
	return DefaultPolicies()[ClassGenericAPI]
}

// Admit counts the request against its window and decides admission.
// Denial is a normal result, not an error. Store failures fail open:
// an unavailable counter store must not turn into an outage.
func (l *RateLimiter) Admit(ctx context.Context, class LimiterClass, clientKey string) Decision {
	policy := l.Policy(class)
	key := string(class) + ":" + clientKey

	count, err := l.store.Incr(ctx, key, policy.Window)
	if err != nil {
		l.log.Warn("rate limit store unavailable, allowing request",
			"class", class.String(),
			"error", err,
		)
		return Decision{Allowed: true, Limit: policy.MaxRequests, Remaining: policy.MaxRequests}
	}

	remaining := policy.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:    count <= int64(policy.MaxRequests),
		Limit:      policy.MaxRequests,
		Remaining:  remaining,
		RetryAfter: policy.Window,
	}
}
