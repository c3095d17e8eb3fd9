package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/password"
)

// Challenge is a single-use captcha session. The expected answer is
// stored as a salted digest, never in clear text.
type Challenge struct {
	SessionID    string    `json:"session_id"`
	Question     string    `json:"question"`
	AnswerSalt   string    `json:"answer_salt"`
	AnswerDigest string    `json:"answer_digest"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ChallengeStore persists captcha sessions between issue and verify.
// Take must atomically remove the session so that concurrent verify
// calls cannot both observe it; a missing session reads as not found.
type ChallengeStore interface {
	Save(ctx context.Context, ch Challenge) error
	Take(ctx context.Context, sessionID string) (Challenge, bool, error)
}

// CaptchaService issues short-lived arithmetic challenges and enforces
// single use. A session has exactly one transition out of Active:
// consumed by the first verify attempt, or expired.
type CaptchaService struct {
	store ChallengeStore
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Logger
}

// CaptchaOption configures the CaptchaService.
type CaptchaOption func(*CaptchaService)

// WithCaptchaClock injects a clock, used by tests to control expiry.
func WithCaptchaClock(now func() time.Time) CaptchaOption {
	return func(s *CaptchaService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCaptchaService creates a captcha service over the given store.
func NewCaptchaService(store ChallengeStore, ttl time.Duration, log *logger.Logger, opts ...CaptchaOption) *CaptchaService {
	s := &CaptchaService{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssuedChallenge is what Issue returns to the client. It never carries
// the answer.
type IssuedChallenge struct {
	SessionID string
	Question  string
	ExpiresAt time.Time
}

// Issue creates a new challenge and stores it.
func (s *CaptchaService) Issue(ctx context.Context) (IssuedChallenge, error) {
	a := rand.Intn(9) + 1
	b := rand.Intn(9) + 1
	question := fmt.Sprintf("%d + %d = ?", a, b)
	answer := fmt.Sprintf("%d", a+b)

	salt, err := password.NewSalt()
	if err != nil {
		return IssuedChallenge{}, fmt.Errorf("failed to generate captcha salt: %w", err)
	}

	ch := Challenge{
		SessionID:    uuid.New().String(),
		Question:     question,
		AnswerSalt:   salt,
		AnswerDigest: password.DigestAnswer(answer, salt),
		ExpiresAt:    s.now().Add(s.ttl),
	}

	if err := s.store.Save(ctx, ch); err != nil {
		return IssuedChallenge{}, fmt.Errorf("failed to store captcha session: %w", err)
	}

	metrics.CaptchaIssuedTotal.Inc()

	return IssuedChallenge{
		SessionID: ch.SessionID,
		Question:  ch.Question,
		ExpiresAt: ch.ExpiresAt,
	}, nil
}

// Verify consumes the session and checks the answer. The session is
// removed before the answer is compared, so replay with the same
// sessionId always fails regardless of the first attempt's outcome.
func (s *CaptchaService) Verify(ctx context.Context, sessionID, answer string) error {
	if sessionID == "" {
		return ErrCaptchaInvalid
	}

	ch, ok, err := s.store.Take(ctx, sessionID)
	if err != nil {
		s.log.Warn("captcha store unavailable", "error", err)
		return ErrCaptchaInvalid
	}
	if !ok {
		metrics.CaptchaVerifiedTotal.WithLabelValues("missing").Inc()
		return ErrCaptchaInvalid
	}

	if s.now().After(ch.ExpiresAt) {
		metrics.CaptchaVerifiedTotal.WithLabelValues("expired").Inc()
		return ErrCaptchaExpired
	}

	if !password.VerifyAnswer(answer, ch.AnswerSalt, ch.AnswerDigest) {
		metrics.CaptchaVerifiedTotal.WithLabelValues("wrong").Inc()
		return ErrCaptchaInvalid
	}

	metrics.CaptchaVerifiedTotal.WithLabelValues("ok").Inc()
	return nil
}
