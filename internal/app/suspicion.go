package app

import (
	"context"
	"strings"
	"time"

	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
)

// suspiciousAgentPatterns are matched case-insensitively against the
// request user-agent. False positives are acceptable: this is a
// heuristic gate, not proof of abuse.
var suspiciousAgentPatterns = []string{
	"bot",
	"crawler",
	"spider",
	"scanner",
	"scraper",
	"test",
}

// SuspicionDetector combines recent failure volume with user-agent
// heuristics into an admit/reject signal.
type SuspicionDetector struct {
	events    *SecurityEventService
	threshold int
	window    time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// NewSuspicionDetector creates a detector reading from the event log.
// A source IP exceeding threshold failure events within the trailing
// window is rejected, as is any request with a bot-like user-agent.
func NewSuspicionDetector(events *SecurityEventService, threshold int, window time.Duration, log *logger.Logger) *SuspicionDetector {
	return &SuspicionDetector{
		events:    events,
		threshold: threshold,
		window:    window,
		now:       time.Now,
		log:       log,
	}
}

// IsSuspicious reports whether the request should be rejected and which
// heuristic fired. The heuristic name goes to the event log only, never
// to the client.
func (d *SuspicionDetector) IsSuspicious(ctx context.Context, sourceIP, userAgent string) (bool, string) {
	if matchesSuspiciousAgent(userAgent) {
		return true, "user_agent"
	}

	since := d.now().Add(-d.window)
	count, err := d.events.CountRecent(ctx, sourceIP, secevent.FailureKinds, since)
	if err != nil {
		// The check favors availability: an unreadable event log does
		// not reject legitimate traffic.
		d.log.Warn("failure count unavailable, skipping heuristic", "error", err)
		return false, ""
	}

	if count > d.threshold {
		return true, "failure_volume"
	}

	return false, ""
}

func matchesSuspiciousAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, pattern := range suspiciousAgentPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
