package dashboard

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidFields    = "INVALID_FIELDS"
	TextCodePasswordMismatch = "PASSWORD_MISMATCH"
	TextCodeResendCooldown   = "RESEND_COOLDOWN"
	TextCodeUserNotFound     = "USER_NOT_FOUND"
	TextCodeFetchUsers       = "FETCH_USERS_FAILED"
	TextCodeFetchUser        = "FETCH_USER_FAILED"
	TextCodeFetchStats       = "FETCH_STATS_FAILED"
	TextCodeNoSession        = "NO_SESSION"
	TextCodeForbidden        = "FORBIDDEN"
)

// ErrInvalidFields is returned for any validation failure at the action boundary
var ErrInvalidFields = errors.New("Invalid fields", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidFields).
	WithCode(errors.CodeBadRequest)

// ErrPasswordMismatch password and confirmation differ
var ErrPasswordMismatch = errors.New("Passwords do not match", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrResendCooldown a confirmation email was sent too recently
var ErrResendCooldown = errors.New("Please wait before requesting another email.", errors.CategoryRateLimit).
	WithTextCode(TextCodeResendCooldown).
	WithCode(http.StatusTooManyRequests)

// ErrUserNotFound no user record with the given id
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrFetchUsers the user listing query failed
var ErrFetchUsers = errors.New("Failed to fetch users", errors.CategoryOperation).
	WithTextCode(TextCodeFetchUsers).
	WithCode(errors.CodeInternal)

// ErrFetchUser the single user query failed
var ErrFetchUser = errors.New("Failed to fetch user", errors.CategoryOperation).
	WithTextCode(TextCodeFetchUser).
	WithCode(errors.CodeInternal)

// ErrFetchStats one of the statistics queries failed
var ErrFetchStats = errors.New("Failed to fetch user statistics", errors.CategoryOperation).
	WithTextCode(TextCodeFetchStats).
	WithCode(errors.CodeInternal)

// ErrNoSession the request carries no usable session
var ErrNoSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden the session user may not access the resource
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// IsUserNotFound reports whether err is a missing user record
func IsUserNotFound(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeUserNotFound
	}
	return false
}

// BackendMessage returns the message to show for a backend failure.
// Rich errors keep their message verbatim, anything else uses err.Error().
func BackendMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && strings.TrimSpace(richErr.Message) != "" {
		return richErr.Message
	}
	return err.Error()
}

func wrapFetch(err error, sentinel *errors.Error, metadata map[string]any) *errors.Error {
	wrapped := errors.Wrap(err, sentinel.Category, sentinel.Message).
		WithTextCode(sentinel.TextCode).
		WithCode(sentinel.Code)
	if len(metadata) > 0 {
		wrapped = wrapped.WithMetadata(metadata)
	}
	return wrapped
}
