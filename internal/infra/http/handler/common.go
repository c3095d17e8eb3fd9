package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/middleware"
	"github.com/maegy2011/FMS-sub000/pkg/apierror"
	"github.com/maegy2011/FMS-sub000/pkg/domain/shared"
	"github.com/maegy2011/FMS-sub000/pkg/pagination"
	pkgvalidator "github.com/maegy2011/FMS-sub000/pkg/validator"
)

// ListResponse represents a paginated list response.
type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes an API error carrying the request ID.
func writeError(w http.ResponseWriter, r *http.Request, apiErr *apierror.Error) {
	apiErr.WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}

// decodeJSON decodes the request body into dst. Unknown fields are
// tolerated; malformed JSON is a client error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return nil
}

// handleServiceError maps application errors onto API responses.
// Internal detail never reaches the response body.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs pkgvalidator.ValidationErrors

	switch {
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, r, apierror.New(http.StatusNotFound, apierror.CodeUserNotFound, "User not found"))
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, r, apierror.Unauthorized("Invalid username or password"))
	case errors.Is(err, app.ErrUsernameTaken):
		writeError(w, r, apierror.Conflict("Username is already taken"))
	case errors.Is(err, app.ErrCaptchaInvalid):
		writeError(w, r, apierror.New(http.StatusBadRequest, apierror.CodeCaptchaInvalid, "Captcha verification failed"))
	case errors.Is(err, app.ErrCaptchaExpired):
		writeError(w, r, apierror.New(http.StatusBadRequest, apierror.CodeCaptchaExpired, "Captcha has expired"))
	case errors.Is(err, app.ErrAnswersIncorrect):
		writeError(w, r, apierror.New(http.StatusBadRequest, apierror.CodeAnswersIncorrect, "Security answers are incorrect"))
	case errors.Is(err, app.ErrWeakPassword):
		writeError(w, r, apierror.New(http.StatusBadRequest, apierror.CodeWeakPassword, "Password does not meet the minimum requirements"))
	case errors.Is(err, shared.ErrNotFound):
		writeError(w, r, apierror.NotFound("Resource"))
	case errors.Is(err, shared.ErrForbidden):
		writeError(w, r, apierror.Forbidden("Access denied"))
	case errors.Is(err, shared.ErrAlreadyExists):
		writeError(w, r, apierror.Conflict("Resource already exists"))
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, r, apierror.BadRequest("Invalid input"))
	case errors.As(err, &validationErrs):
		writeError(w, r, apierror.ValidationFailed("Validation failed", validationErrs))
	default:
		writeError(w, r, apierror.InternalError(err))
	}
}

// handleValidationError maps validator errors onto a 422 response.
func handleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs pkgvalidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		writeError(w, r, apierror.ValidationFailed("Validation failed", validationErrs))
		return
	}
	writeError(w, r, apierror.BadRequest(err.Error()))
}

// parsePagination reads page and per_page from the query string.
func parsePagination(r *http.Request) pagination.Pagination {
	query := r.URL.Query()
	return pagination.New(
		parseQueryInt(query.Get("page"), 1),
		parseQueryInt(query.Get("per_page"), 20),
	)
}

// parseQueryInt parses a query parameter as an integer.
// Returns defaultVal if the input is empty or invalid.
func parseQueryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// pathID parses a path parameter into a domain ID.
func pathID(raw string) (shared.ID, error) {
	return shared.IDFromString(raw)
}
