package handler

import (
	"net/http"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/middleware"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/secevent"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
	"github.com/maegy2011/FMS-sub000/pkg/validator"
)

// AuthHandler handles login and registration.
type AuthHandler struct {
	auth      *app.AuthService
	events    *app.SecurityEventService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *app.AuthService, events *app.SecurityEventService, v *validator.Validator, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		events:    events,
		validator: v,
		logger:    log,
	}
}

// --- Request/Response Types ---

// LoginRequest carries login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// RegisterQuestion is one security question with its answer.
type RegisterQuestion struct {
	Question string `json:"question" validate:"required,min=5,max=255"`
	Answer   string `json:"answer" validate:"required,min=1,max=255"`
}

// RegisterRequest creates a new account. Exactly three distinct
// security questions are required.
type RegisterRequest struct {
	Username  string             `json:"username" validate:"required,username"`
	Password  string             `json:"password" validate:"required,min=8"`
	Questions []RegisterQuestion `json:"questions" validate:"required,len=3,dive"`
}

// RegisterResponse confirms the created account.
type RegisterResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// --- Handlers ---

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.events.Record(secevent.New(
			time.Now(),
			middleware.ClientIP(r),
			r.UserAgent(),
			secevent.KindLoginFailed,
			"username="+req.Username,
		))
		handleServiceError(w, r, err)
		return
	}

	h.events.Record(secevent.New(
		time.Now(),
		middleware.ClientIP(r),
		r.UserAgent(),
		secevent.KindLoginSuccess,
		"username="+req.Username,
	).WithUser(result.UserID))

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.UserID,
		Username:  result.Username,
		Role:      result.Role.String(),
	})
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apierror.BadRequest("Invalid request body"))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, r, err)
		return
	}

	input := app.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	}
	for _, q := range req.Questions {
		input.Questions = append(input.Questions, app.AnswerInput{
			Question: q.Question,
			Answer:   q.Answer,
		})
	}

	created, err := h.auth.Register(r.Context(), input)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.events.Record(secevent.New(
		time.Now(),
		middleware.ClientIP(r),
		r.UserAgent(),
		secevent.KindUserRegistered,
		"username="+created.Username,
	).WithUser(created.ID.String()))

	writeJSON(w, http.StatusCreated, RegisterResponse{
		UserID:   created.ID.String(),
		Username: created.Username,
	})
}
