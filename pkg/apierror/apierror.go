// Package apierror provides standardized API error handling.
// Every error kind the security gate and recovery protocol can produce
// maps to exactly one HTTP status and a generic client-facing message;
// internal detail stays in the Err field for logging only.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Standard error codes.
const (
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeInternalError    Code = "INTERNAL_ERROR"
	CodeValidationFailed Code = "VALIDATION_FAILED"
)

// Gate and recovery error codes.
const (
	CodeMissingToken       Code = "MISSING_TOKEN"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeSuspiciousActivity Code = "SUSPICIOUS_ACTIVITY"
	CodeInvalidMethod      Code = "INVALID_METHOD"
	CodeInvalidContentType Code = "INVALID_CONTENT_TYPE"
	CodeRequestTooLarge    Code = "REQUEST_TOO_LARGE"
	CodeMissingHeader      Code = "MISSING_HEADER"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeCaptchaInvalid     Code = "CAPTCHA_INVALID"
	CodeCaptchaExpired     Code = "CAPTCHA_EXPIRED"
	CodeAnswersIncorrect   Code = "ANSWERS_INCORRECT"
	CodeWeakPassword       Code = "WEAK_PASSWORD"
	CodeSecurityError      Code = "SECURITY_ERROR"
)

// Error represents a standardized API error.
type Error struct {
	// HTTP status code
	Status int `json:"-"`

	// Machine-readable error code
	Code Code `json:"code"`

	// Human-readable error message
	Message string `json:"message"`

	// Additional error details (optional)
	Details any `json:"details,omitempty"`

	// Internal error (not exposed to client)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Response represents the error response structure.
type Response struct {
	Error     string `json:"error"`
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ToResponse converts the error to a response structure.
func (e *Error) ToResponse() Response {
	return Response{
		Error:   e.Message,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// WriteJSON writes the error as JSON to the response writer.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e.ToResponse())
}

// WriteJSONWithRequestID writes the error as JSON with request ID.
func (e *Error) WriteJSONWithRequestID(w http.ResponseWriter, requestID string) {
	resp := e.ToResponse()
	resp.RequestID = requestID
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(resp)
}

// New creates a new API error.
func New(status int, code Code, message string) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with API error context.
func Wrap(err error, status int, code Code, message string) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithError adds an internal error.
func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

// Pre-defined constructors

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return New(http.StatusForbidden, CodeForbidden, message)
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *Error {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return New(http.StatusNotFound, CodeNotFound, message)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// ValidationFailed creates a 422 Unprocessable Entity error.
func ValidationFailed(message string, details any) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidationFailed,
		Message: message,
		Details: details,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Gate constructors

// MissingToken creates a 401 for requests without a bearer credential.
func MissingToken() *Error {
	return New(http.StatusUnauthorized, CodeMissingToken, "Authentication required")
}

// InvalidToken creates a 401 for malformed, forged or expired tokens.
// All three collapse to the same response to avoid information leakage.
func InvalidToken(err error) *Error {
	return Wrap(err, http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token")
}

// RateLimitExceeded creates a 429 Too Many Requests error.
func RateLimitExceeded() *Error {
	return New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded, please try again later")
}

// SuspiciousActivity creates the 403 returned when the activity
// heuristics reject a request. The message is user-facing Arabic,
// matching the rest of the application surface.
func SuspiciousActivity() *Error {
	return New(http.StatusForbidden, CodeSuspiciousActivity, "تم رفض الطلب بسبب نشاط مشبوه")
}

// InvalidMethod creates a 405 for methods outside the allow-list.
func InvalidMethod(method string) *Error {
	return Wrap(fmt.Errorf("method %s not allowed", method),
		http.StatusMethodNotAllowed, CodeInvalidMethod, "Method not allowed")
}

// InvalidContentType creates a 400 for unsupported request bodies.
func InvalidContentType() *Error {
	return New(http.StatusBadRequest, CodeInvalidContentType, "Unsupported content type")
}

// RequestTooLarge creates a 413 for bodies over the size ceiling.
func RequestTooLarge() *Error {
	return New(http.StatusRequestEntityTooLarge, CodeRequestTooLarge, "Request body too large")
}

// MissingHeader creates a 400 for requests missing required headers.
func MissingHeader(name string) *Error {
	return Wrap(fmt.Errorf("missing header %q", name),
		http.StatusBadRequest, CodeMissingHeader, "Missing required header")
}

// SecurityError creates the generic 500 used when the gate recovers
// from an internal fault. Detail goes to the event log, never the client.
func SecurityError(err error) *Error {
	return Wrap(err, http.StatusInternalServerError, CodeSecurityError, "An internal error occurred")
}

// Helper functions

// IsAPIError checks if an error is an API error.
func IsAPIError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}

// FromError converts any error to an API error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	return InternalError(err)
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Add adds a validation error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// ToAPIError converts validation errors to an API error.
func (v ValidationErrors) ToAPIError() *Error {
	return ValidationFailed("Validation failed", v)
}
