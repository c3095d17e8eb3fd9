// Package secevent provides the security event domain model.
// Events are append-only: nothing in this system mutates or deletes a
// recorded event; retention is an operational concern.
package secevent

import (
	"time"

	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
)

// Kind classifies a security event.
type Kind string

const (
	KindLoginSuccess       Kind = "LOGIN_SUCCESS"
	KindLoginFailed        Kind = "LOGIN_FAILED"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindAccessDenied       Kind = "ACCESS_DENIED"
	KindSuspiciousActivity Kind = "SUSPICIOUS_ACTIVITY"
	KindRateLimitExceeded  Kind = "RATE_LIMIT_EXCEEDED"
	KindInvalidRequest     Kind = "INVALID_REQUEST"
	KindSecurityError      Kind = "SECURITY_ERROR"
	KindUserRegistered     Kind = "USER_REGISTERED"
	KindCaptchaFailed      Kind = "CAPTCHA_FAILED"
	KindRecoveryFailed     Kind = "RECOVERY_FAILED"
	KindPasswordReset      Kind = "PASSWORD_RESET"
)

// IsValid checks if the kind is a known event kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindLoginSuccess, KindLoginFailed, KindInvalidToken, KindAccessDenied,
		KindSuspiciousActivity, KindRateLimitExceeded, KindInvalidRequest,
		KindSecurityError, KindUserRegistered, KindCaptchaFailed,
		KindRecoveryFailed, KindPasswordReset:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// FailureKinds are the kinds the suspicious activity detector counts
// when deciding whether a source IP is abusive.
var FailureKinds = []Kind{KindLoginFailed, KindInvalidToken, KindAccessDenied}

// Event is one security-relevant occurrence.
type Event struct {
	ID        shared.ID
	Timestamp time.Time
	SourceIP  string
	UserAgent string
	Action    Kind
	Details   string
	UserID    *string
}

// New creates an event stamped with the given time.
func New(now time.Time, sourceIP, userAgent string, action Kind, details string) Event {
	return Event{
		ID:        shared.NewID(),
		Timestamp: now,
		SourceIP:  sourceIP,
		UserAgent: userAgent,
		Action:    action,
		Details:   details,
	}
}

// WithUser attaches the acting user to the event.
func (e Event) WithUser(userID string) Event {
	e.UserID = &userID
	return e
}
