package local

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeEmailNotConfirmed   = "EMAIL_NOT_CONFIRMED"
	TextCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	TextCodeTooManyLoginAttempt = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeInvalidLink         = "INVALID_EMAIL_LINK"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
)

// ErrInvalidCredentials unknown email or wrong password
var ErrInvalidCredentials = errors.New("Invalid login credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrEmailNotConfirmed the account exists but its email was never verified
var ErrEmailNotConfirmed = errors.New("Email not confirmed", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(errors.CodeBadRequest)

// ErrUserAlreadyExists sign up with a registered email
var ErrUserAlreadyExists = errors.New("User already registered", errors.CategoryConflict).
	WithTextCode(TextCodeUserAlreadyExists).
	WithCode(errors.CodeConflict)

// ErrTooManyLoginAttempts too many failed attempts in the cool down period
var ErrTooManyLoginAttempts = errors.New("Too many login attempts, try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyLoginAttempt).
	WithCode(http.StatusTooManyRequests)

// ErrInvalidLink the email link token is unknown, used or expired
var ErrInvalidLink = errors.New("Email link is invalid or has expired", errors.CategoryNotFound).
	WithTextCode(TextCodeInvalidLink).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired the session token expired
var ErrTokenExpired = errors.New("Session expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed the session token could not be validated
var ErrTokenMalformed = errors.New("Invalid session token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrEmptyPassword passwords can not be empty
var ErrEmptyPassword = errors.New("Password can not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)
