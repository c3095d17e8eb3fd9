package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/password"
	"github.com/maegy2011/FMS-sub000/pkg/token"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	tokens := token.NewService(token.Config{
		Secret:   "test-secret-test-secret-test-secret!",
		Issuer:   "fms-test",
		Lifetime: time.Hour,
	})
	hasher := password.New(password.WithCost(4))
	return NewAuthService(repo, tokens, hasher, logger.NewNop()), repo
}

func registerInput(username string) RegisterInput {
	return RegisterInput{
		Username: username,
		Password: "correct-horse-battery",
		Questions: []AnswerInput{
			{Question: "What was your first pet's name?", Answer: "Rex"},
			{Question: "What city were you born in?", Answer: "Cairo"},
			{Question: "What was your first school's name?", Answer: "Nile Primary"},
		},
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed credentials", func(t *testing.T) {
		svc, repo := newAuthFixture(t)

		created, err := svc.Register(ctx, registerInput("maha"))
		require.NoError(t, err)
		assert.Equal(t, "maha", created.Username)
		assert.Equal(t, user.RoleUser, created.Role)
		assert.NotEqual(t, "correct-horse-battery", created.PasswordHash)

		stored, err := repo.SecurityQuestions(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, stored, user.QuestionCount)
		for _, q := range stored {
			assert.NotContains(t, []string{"Rex", "Cairo", "Nile Primary"}, q.AnswerDigest)
			assert.NotEmpty(t, q.AnswerSalt)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		_, err := svc.Register(ctx, registerInput("maha"))
		require.NoError(t, err)

		_, err = svc.Register(ctx, registerInput("maha"))
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		input := registerInput("maha")
		input.Password = "short"
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("wrong question count", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		input := registerInput("maha")
		input.Questions = input.Questions[:2]
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("duplicate questions", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		input := registerInput("maha")
		input.Questions[2] = input.Questions[0]
		_, err := svc.Register(ctx, input)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture(t)
	created, err := svc.Register(ctx, registerInput("maha"))
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		result, err := svc.Login(ctx, "maha", "correct-horse-battery")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, created.ID.String(), result.UserID)
		assert.Equal(t, user.RoleUser, result.Role)
		assert.True(t, result.ExpiresAt.After(time.Now()))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "maha", "not-the-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
