package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/infra/memory"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
	"github.com/maegy2011/FMS-sub000/pkg/password"
	"github.com/maegy2011/FMS-sub000/pkg/validator"
)

type stubUserRepo struct {
	user      *user.User
	questions []user.SecurityQuestion
	passwords map[shared.ID]string
}

func (r *stubUserRepo) Create(context.Context, *user.User, []user.SecurityQuestion) error {
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*user.User, error) {
	if r.user == nil || r.user.Username != username {
		return nil, shared.ErrNotFound
	}
	cp := *r.user
	return &cp, nil
}

func (r *stubUserRepo) SecurityQuestions(_ context.Context, userID shared.ID) ([]user.SecurityQuestion, error) {
	if r.user == nil || !r.user.ID.Equals(userID) {
		return nil, shared.ErrNotFound
	}
	return r.questions, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, userID shared.ID, hash string) error {
	if r.passwords == nil {
		r.passwords = make(map[shared.ID]string)
	}
	r.passwords[userID] = hash
	return nil
}

type stubEventRepo struct{}

func (stubEventRepo) Insert(context.Context, secevent.Event) error { return nil }
func (stubEventRepo) CountRecent(context.Context, string, []secevent.Kind, time.Time) (int, error) {
	return 0, nil
}
func (stubEventRepo) List(context.Context, app.EventFilter, pagination.Pagination) ([]secevent.Event, int64, error) {
	return nil, 0, nil
}

type recoveryFixture struct {
	handler *RecoveryHandler
	captcha *app.CaptchaService
	users   *stubUserRepo
}

var recoveryAnswers = map[string]string{
	"What was your first pet's name?":    "Whiskers",
	"What city were you born in?":        "Cairo",
	"What was your first school's name?": "Hillside",
}

func newRecoveryFixture(t *testing.T) *recoveryFixture {
	t.Helper()

	store := memory.NewChallengeStore(time.Minute)
	t.Cleanup(store.Stop)

	log := logger.NewNop()
	captcha := app.NewCaptchaService(store, 5*time.Minute, log)

	userID := shared.NewID()
	users := &stubUserRepo{
		user: &user.User{ID: userID, Username: "jane.doe", Role: user.RoleUser},
	}
	for q, a := range recoveryAnswers {
		salt, err := password.NewSalt()
		require.NoError(t, err)
		users.questions = append(users.questions, user.SecurityQuestion{
			ID:           shared.NewID(),
			UserID:       userID,
			Question:     q,
			AnswerSalt:   salt,
			AnswerDigest: password.DigestAnswer(a, salt),
		})
	}

	hasher := password.New(password.WithCost(4))
	recovery := app.NewRecoveryService(users, captcha, hasher, log)
	events := app.NewSecurityEventService(stubEventRepo{}, log)

	return &recoveryFixture{
		handler: NewRecoveryHandler(captcha, recovery, events, validator.New(), log),
		captcha: captcha,
		users:   users,
	}
}

// solvedCaptcha issues a fresh challenge and returns its token and the
// correct answer.
func (f *recoveryFixture) solvedCaptcha(t *testing.T) (string, string) {
	t.Helper()

	ch, err := f.captcha.Issue(context.Background())
	require.NoError(t, err)

	var a, b int
	_, err = fmt.Sscanf(ch.Question, "%d + %d = ?", &a, &b)
	require.NoError(t, err)

	return ch.SessionID, fmt.Sprintf("%d", a+b)
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func answersFor(m map[string]string) []AnswerItem {
	items := make([]AnswerItem, 0, len(m))
	for q, a := range m {
		items = append(items, AnswerItem{Question: q, Answer: a})
	}
	return items
}

func TestIssueCaptcha(t *testing.T) {
	f := newRecoveryFixture(t)

	rec := httptest.NewRecorder()
	f.handler.IssueCaptcha(rec, httptest.NewRequest(http.MethodGet, "/auth/captcha", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "sessionId")
	assert.Contains(t, resp, "question")
	assert.Contains(t, resp, "expiresAt")
	assert.NotContains(t, rec.Body.String(), "digest", "answer material must not be issued")
}

func TestUserQuestions(t *testing.T) {
	f := newRecoveryFixture(t)

	t.Run("known user gets question texts", func(t *testing.T) {
		token, answer := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.UserQuestions, "/auth/user-questions", UserQuestionsRequest{
			Username: "jane.doe", CaptchaToken: token, CaptchaAnswer: answer,
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var resp UserQuestionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Questions, 3)
		for _, item := range resp.Questions {
			assert.Contains(t, recoveryAnswers, item.Question)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		token, answer := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.UserQuestions, "/auth/user-questions", UserQuestionsRequest{
			Username: "nobody", CaptchaToken: token, CaptchaAnswer: answer,
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "USER_NOT_FOUND")
	})

	t.Run("wrong captcha answer", func(t *testing.T) {
		token, _ := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.UserQuestions, "/auth/user-questions", UserQuestionsRequest{
			Username: "jane.doe", CaptchaToken: token, CaptchaAnswer: "999",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "CAPTCHA_INVALID")
	})

	t.Run("missing captcha fields fail validation", func(t *testing.T) {
		rec := postJSON(t, f.handler.UserQuestions, "/auth/user-questions", UserQuestionsRequest{
			Username: "jane.doe",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	})
}

func TestVerifyAnswers(t *testing.T) {
	f := newRecoveryFixture(t)

	t.Run("all answers correct", func(t *testing.T) {
		token, answer := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.VerifyAnswers, "/auth/verify-answers", VerifyAnswersRequest{
			Username:      "jane.doe",
			Answers:       answersFor(recoveryAnswers),
			CaptchaToken:  token,
			CaptchaAnswer: answer,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Security answers verified")
	})

	t.Run("one wrong answer", func(t *testing.T) {
		wrong := map[string]string{}
		for q, a := range recoveryAnswers {
			wrong[q] = a
		}
		wrong["What city were you born in?"] = "Alexandria"

		token, answer := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.VerifyAnswers, "/auth/verify-answers", VerifyAnswersRequest{
			Username:      "jane.doe",
			Answers:       answersFor(wrong),
			CaptchaToken:  token,
			CaptchaAnswer: answer,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ANSWERS_INCORRECT")
	})

	t.Run("captcha is single use", func(t *testing.T) {
		token, answer := f.solvedCaptcha(t)
		body := VerifyAnswersRequest{
			Username:      "jane.doe",
			Answers:       answersFor(recoveryAnswers),
			CaptchaToken:  token,
			CaptchaAnswer: answer,
		}
		require.Equal(t, http.StatusOK, postJSON(t, f.handler.VerifyAnswers, "/auth/verify-answers", body).Code)

		rec := postJSON(t, f.handler.VerifyAnswers, "/auth/verify-answers", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "CAPTCHA_INVALID")
	})
}

func TestResetPassword(t *testing.T) {
	f := newRecoveryFixture(t)

	t.Run("correct answers replace the credential", func(t *testing.T) {
		token, answer := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
			Username:        "jane.doe",
			SecurityAnswers: answersFor(recoveryAnswers),
			NewPassword:     "brand-new-password",
			CaptchaToken:    token,
			CaptchaAnswer:   answer,
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Password has been reset")
		assert.NotEmpty(t, f.users.passwords[f.users.user.ID])
		assert.NotContains(t, f.users.passwords[f.users.user.ID], "brand-new-password")
	})

	t.Run("wrong answers leave the credential alone", func(t *testing.T) {
		g := newRecoveryFixture(t)

		wrong := map[string]string{}
		for q := range recoveryAnswers {
			wrong[q] = "nope"
		}

		token, answer := g.solvedCaptcha(t)
		rec := postJSON(t, g.handler.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
			Username:        "jane.doe",
			SecurityAnswers: answersFor(wrong),
			NewPassword:     "brand-new-password",
			CaptchaToken:    token,
			CaptchaAnswer:   answer,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "ANSWERS_INCORRECT")
		assert.Empty(t, g.users.passwords)
	})

	t.Run("weak password", func(t *testing.T) {
		token, answer := f.solvedCaptcha(t)
		rec := postJSON(t, f.handler.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
			Username:        "jane.doe",
			SecurityAnswers: answersFor(recoveryAnswers),
			NewPassword:     "short",
			CaptchaToken:    token,
			CaptchaAnswer:   answer,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "WEAK_PASSWORD")
	})
}
