package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/middleware"
	"github.com/maegy2011/FMS-sub000/internal/metrics"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/validator"
)

// RecoveryHandler serves the account recovery flow: captcha issuance,
// question retrieval, answer verification and password reset. Every
// step consumes a fresh captcha.
type RecoveryHandler struct {
	captcha   *app.CaptchaService
	recovery  *app.RecoveryService
	events    *app.SecurityEventService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewRecoveryHandler creates a new RecoveryHandler.
func NewRecoveryHandler(captcha *app.CaptchaService, recovery *app.RecoveryService, events *app.SecurityEventService, v *validator.Validator, log *logger.Logger) *RecoveryHandler {
	return &RecoveryHandler{
		captcha:   captcha,
		recovery:  recovery,
		events:    events,
		validator: v,
		logger:    log,
	}
}

// --- Request/Response Types ---

// CaptchaResponse is the issued challenge. The session ID doubles as
// the captcha token on subsequent requests.
type CaptchaResponse struct {
	SessionID string    `json:"sessionId"`
	Question  string    `json:"question"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserQuestionsRequest asks for a user's security questions.
type UserQuestionsRequest struct {
	Username      string `json:"username" validate:"required,username"`
	CaptchaToken  string `json:"captchaToken" validate:"required"`
	CaptchaAnswer string `json:"captchaAnswer" validate:"required"`
}

// QuestionItem carries a single question text. Question text is the
// identifier the client echoes back with its answer.
type QuestionItem struct {
	Question string `json:"question"`
}

// UserQuestionsResponse lists the user's security questions.
type UserQuestionsResponse struct {
	Questions []QuestionItem `json:"questions"`
}

// AnswerItem pairs a question with the submitted answer.
type AnswerItem struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// VerifyAnswersRequest submits answers for verification.
type VerifyAnswersRequest struct {
	Username      string       `json:"username" validate:"required,username"`
	Answers       []AnswerItem `json:"answers" validate:"required,dive"`
	CaptchaToken  string       `json:"captchaToken" validate:"required"`
	CaptchaAnswer string       `json:"captchaAnswer" validate:"required"`
}

// ResetPasswordRequest completes the flow with a new password. The
// answers are re-validated here; a passed verification step grants
// nothing by itself.
type ResetPasswordRequest struct {
	Username        string       `json:"username" validate:"required,username"`
	SecurityAnswers []AnswerItem `json:"securityAnswers" validate:"required,dive"`
	NewPassword     string       `json:"newPassword" validate:"required"`
	CaptchaToken    string       `json:"captchaToken" validate:"required"`
	CaptchaAnswer   string       `json:"captchaAnswer" validate:"required"`
}

// MessageResponse is a simple confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// --- Handlers ---

// IssueCaptcha handles GET /auth/captcha
func (h *RecoveryHandler) IssueCaptcha(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.captcha.Issue(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CaptchaResponse{
		SessionID: challenge.SessionID,
		Question:  challenge.Question,
		ExpiresAt: challenge.ExpiresAt,
	})
}

// UserQuestions handles POST /auth/user-questions
func (h *RecoveryHandler) UserQuestions(w http.ResponseWriter, r *http.Request) {
	var req UserQuestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	questions, err := h.recovery.Questions(r.Context(), req.Username, req.CaptchaToken, req.CaptchaAnswer)
	if err != nil {
		h.recordFailure(r, "questions", req.Username, err)
		handleServiceError(w, r, err)
		return
	}

	metrics.RecoveryAttemptsTotal.WithLabelValues("questions", "success").Inc()

	items := make([]QuestionItem, 0, len(questions))
	for _, q := range questions {
		items = append(items, QuestionItem{Question: q})
	}
	writeJSON(w, http.StatusOK, UserQuestionsResponse{Questions: items})
}

// VerifyAnswers handles POST /auth/verify-answers
func (h *RecoveryHandler) VerifyAnswers(w http.ResponseWriter, r *http.Request) {
	var req VerifyAnswersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	err := h.recovery.VerifyAnswers(r.Context(), req.Username, toAnswerInputs(req.Answers), req.CaptchaToken, req.CaptchaAnswer)
	if err != nil {
		h.recordFailure(r, "verify", req.Username, err)
		handleServiceError(w, r, err)
		return
	}

	metrics.RecoveryAttemptsTotal.WithLabelValues("verify", "success").Inc()
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Security answers verified"})
}

// ResetPassword handles POST /auth/reset-password
func (h *RecoveryHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	err := h.recovery.ResetPassword(r.Context(), req.Username, toAnswerInputs(req.SecurityAnswers), req.NewPassword, req.CaptchaToken, req.CaptchaAnswer)
	if err != nil {
		h.recordFailure(r, "reset", req.Username, err)
		handleServiceError(w, r, err)
		return
	}

	metrics.RecoveryAttemptsTotal.WithLabelValues("reset", "success").Inc()

	h.events.Record(secevent.New(
		time.Now(),
		middleware.ClientIP(r),
		r.UserAgent(),
		secevent.KindPasswordReset,
		"username="+req.Username,
	))

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

func (h *RecoveryHandler) recordFailure(r *http.Request, step, username string, err error) {
	metrics.RecoveryAttemptsTotal.WithLabelValues(step, "failure").Inc()

	kind := secevent.KindRecoveryFailed
	result := "recovery"
	if errors.Is(err, app.ErrCaptchaInvalid) || errors.Is(err, app.ErrCaptchaExpired) {
		kind = secevent.KindCaptchaFailed
		result = "captcha"
		metrics.CaptchaVerifiedTotal.WithLabelValues("failure").Inc()
	}

	h.events.Record(secevent.New(
		time.Now(),
		middleware.ClientIP(r),
		r.UserAgent(),
		kind,
		"step="+step+" username="+username+" reason="+result,
	))
}

func toAnswerInputs(items []AnswerItem) []app.AnswerInput {
	inputs := make([]app.AnswerInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, app.AnswerInput{
			Question: item.Question,
			Answer:   item.Answer,
		})
	}
	return inputs
}
