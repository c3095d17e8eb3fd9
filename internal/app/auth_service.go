package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/password"
	"github.com/maegy2011/FMS-sub000/pkg/token"
)

// AuthService handles login and registration.
type AuthService struct {
	users  UserRepository
	tokens *token.Service
	hasher *password.Hasher
	log    *logger.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(users UserRepository, tokens *token.Service, hasher *password.Hasher, log *logger.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		log:    log.With("service", "auth"),
	}
}

// LoginResult carries the issued session credential.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Username  string
	Role      user.Role
}

// Login verifies the credential and issues a session token. Unknown
// usernames and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, pass string) (*LoginResult, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			metrics.AuthFailuresTotal.WithLabelValues("unknown_user").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Verify(pass, u.PasswordHash); err != nil {
		metrics.AuthFailuresTotal.WithLabelValues("bad_password").Inc()
		return nil, ErrInvalidCredentials
	}

	tok, expiresAt, err := s.tokens.Issue(u.ID.String(), u.Role.String())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{
		Token:     tok,
		ExpiresAt: expiresAt,
		UserID:    u.ID.String(),
		Username:  u.Username,
		Role:      u.Role,
	}, nil
}

// RegisterInput holds everything a new account needs, including the
// three recovery questions.
type RegisterInput struct {
	Username  string
	Password  string
	Questions []AnswerInput
}

// Register creates a user with hashed password and salted answer
// digests.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	if err := s.hasher.Validate(input.Password); err != nil {
		return nil, ErrWeakPassword
	}
	if len(input.Questions) != user.QuestionCount {
		return nil, fmt.Errorf("%w: exactly %d security questions required", shared.ErrInvalidInput, user.QuestionCount)
	}

	seen := make(map[string]bool, len(input.Questions))
	for _, q := range input.Questions {
		text := strings.TrimSpace(q.Question)
		if text == "" || seen[text] {
			return nil, fmt.Errorf("%w: security questions must be distinct and non-empty", shared.ErrInvalidInput)
		}
		seen[text] = true
	}

	if _, err := s.users.FindByUsername(ctx, input.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	u := &user.User{
		ID:           shared.NewID(),
		Username:     input.Username,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	questions := make([]user.SecurityQuestion, 0, len(input.Questions))
	for _, q := range input.Questions {
		salt, err := password.NewSalt()
		if err != nil {
			return nil, fmt.Errorf("failed to generate answer salt: %w", err)
		}
		questions = append(questions, user.SecurityQuestion{
			ID:           shared.NewID(),
			UserID:       u.ID,
			Question:     strings.TrimSpace(q.Question),
			AnswerSalt:   salt,
			AnswerDigest: password.DigestAnswer(q.Answer, salt),
		})
	}

	if err := s.users.Create(ctx, u, questions); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", "user_id", u.ID.String())
	return u, nil
}
