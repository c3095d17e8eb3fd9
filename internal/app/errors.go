package app

import "errors"

// Recovery and authentication outcomes. These are results, not faults:
// the HTTP layer maps each to exactly one status and a generic message.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrCaptchaInvalid     = errors.New("captcha invalid")
	ErrCaptchaExpired     = errors.New("captcha expired")
	ErrAnswersIncorrect   = errors.New("security answers incorrect")
	ErrWeakPassword       = errors.New("password too weak")
)
