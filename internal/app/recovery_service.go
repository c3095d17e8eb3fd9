package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/password"
)

// UserRepository persists user credentials and their security questions.
type UserRepository interface {
	Create(ctx context.Context, u *user.User, questions []user.SecurityQuestion) error
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	SecurityQuestions(ctx context.Context, userID shared.ID) ([]user.SecurityQuestion, error)
	UpdatePassword(ctx context.Context, userID shared.ID, passwordHash string) error
}

// AnswerInput is one submitted security answer, keyed by question text.
type AnswerInput struct {
	Question string
	Answer   string
}

// RecoveryService drives the account recovery protocol:
// identify -> challenge -> verify -> reset. Each step requires a fresh
// captcha verification; no state is carried between steps, so the reset
// step re-validates the security answers in full.
type RecoveryService struct {
	users   UserRepository
	captcha *CaptchaService
	hasher  *password.Hasher
	log     *logger.Logger
}

// NewRecoveryService creates the recovery service.
func NewRecoveryService(users UserRepository, captcha *CaptchaService, hasher *password.Hasher, log *logger.Logger) *RecoveryService {
	return &RecoveryService{
		users:   users,
		captcha: captcha,
		hasher:  hasher,
		log:     log.With("service", "recovery"),
	}
}

// Questions is the identify step: captcha must verify and the username
// must resolve. Returns the user's security question texts, never the
// answers.
func (s *RecoveryService) Questions(ctx context.Context, username, captchaToken, captchaAnswer string) ([]string, error) {
	if err := s.captcha.Verify(ctx, captchaToken, captchaAnswer); err != nil {
		metrics.RecoveryAttemptsTotal.WithLabelValues("identify", "captcha_failed").Inc()
		return nil, err
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			metrics.RecoveryAttemptsTotal.WithLabelValues("identify", "user_not_found").Inc()
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	questions, err := s.users.SecurityQuestions(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load security questions: %w", err)
	}

	metrics.RecoveryAttemptsTotal.WithLabelValues("identify", "ok").Inc()
	return user.QuestionTexts(questions), nil
}

// VerifyAnswers is the challenge step: captcha must verify and every
// one of the three answers must match its stored digest. No partial
// credit.
func (s *RecoveryService) VerifyAnswers(ctx context.Context, username string, answers []AnswerInput, captchaToken, captchaAnswer string) error {
	if err := s.captcha.Verify(ctx, captchaToken, captchaAnswer); err != nil {
		metrics.RecoveryAttemptsTotal.WithLabelValues("verify", "captcha_failed").Inc()
		return err
	}

	if err := s.checkAnswers(ctx, username, answers); err != nil {
		metrics.RecoveryAttemptsTotal.WithLabelValues("verify", "failed").Inc()
		return err
	}

	metrics.RecoveryAttemptsTotal.WithLabelValues("verify", "ok").Inc()
	return nil
}

// ResetPassword is the final step. The security answers are re-validated
// in full rather than trusting the previous step, since no server-side
// state links the steps. On success the stored credential is replaced.
func (s *RecoveryService) ResetPassword(ctx context.Context, username string, answers []AnswerInput, newPassword, captchaToken, captchaAnswer string) error {
	if err := s.captcha.Verify(ctx, captchaToken, captchaAnswer); err != nil {
		metrics.RecoveryAttemptsTotal.WithLabelValues("reset", "captcha_failed").Inc()
		return err
	}

	if err := s.hasher.Validate(newPassword); err != nil {
		metrics.RecoveryAttemptsTotal.WithLabelValues("reset", "weak_password").Inc()
		return ErrWeakPassword
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			metrics.RecoveryAttemptsTotal.WithLabelValues("reset", "user_not_found").Inc()
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.matchAnswers(ctx, u.ID, answers); err != nil {
		metrics.RecoveryAttemptsTotal.WithLabelValues("reset", "answers_incorrect").Inc()
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	metrics.RecoveryAttemptsTotal.WithLabelValues("reset", "ok").Inc()
	s.log.Info("password reset completed", "user_id", u.ID.String())
	return nil
}

func (s *RecoveryService) checkAnswers(ctx context.Context, username string, answers []AnswerInput) error {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return s.matchAnswers(ctx, u.ID, answers)
}

// matchAnswers requires exactly one submitted answer per stored
// question, all correct. Every pair is checked even after a mismatch so
// the response time does not reveal which answer failed.
func (s *RecoveryService) matchAnswers(ctx context.Context, userID shared.ID, answers []AnswerInput) error {
	stored, err := s.users.SecurityQuestions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load security questions: %w", err)
	}

	if len(answers) != len(stored) || len(stored) != user.QuestionCount {
		return ErrAnswersIncorrect
	}

	byQuestion := make(map[string]AnswerInput, len(answers))
	for _, a := range answers {
		byQuestion[a.Question] = a
	}
	if len(byQuestion) != len(stored) {
		return ErrAnswersIncorrect
	}

	allMatch := true
	for _, q := range stored {
		submitted, ok := byQuestion[q.Question]
		if !ok {
			allMatch = false
			continue
		}
		if !password.VerifyAnswer(submitted.Answer, q.AnswerSalt, q.AnswerDigest) {
			allMatch = false
		}
	}

	if !allMatch {
		return ErrAnswersIncorrect
	}
	return nil
}
