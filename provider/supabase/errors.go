package supabase

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnavailable  = "SUPABASE_UNAVAILABLE"
	TextCodeAPIError     = "SUPABASE_API_ERROR"
	TextCodeTokenInvalid = "SUPABASE_TOKEN_INVALID"
)

// apiError covers the error shapes GoTrue and PostgREST answer with
type apiError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func (e apiError) message() string {
	for _, m := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}

func (e apiError) textCode() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if s, ok := e.Code.(string); ok && s != "" {
		return s
	}
	if e.Error != "" && e.ErrorDescription != "" {
		return e.Error
	}
	return TextCodeAPIError
}

// decodeAPIError keeps the backend message verbatim so the action layer
// can show it to the user.
func decodeAPIError(status int, body []byte) *errors.Error {
	var payload apiError
	_ = json.Unmarshal(body, &payload)

	msg := payload.message()
	if msg == "" {
		msg = http.StatusText(status)
	}

	richErr := newStatusError(msg, status).
		WithTextCode(payload.textCode()).
		WithCode(status)

	meta := map[string]any{"status": status}
	if payload.Details != "" {
		meta["details"] = payload.Details
	}
	if payload.Hint != "" {
		meta["hint"] = payload.Hint
	}
	return richErr.WithMetadata(meta)
}

func newStatusError(msg string, status int) *errors.Error {
	switch {
	case status == http.StatusUnauthorized:
		return errors.New(msg, errors.CategoryAuth)
	case status == http.StatusForbidden:
		return errors.New(msg, errors.CategoryAuthz)
	case status == http.StatusNotFound:
		return errors.New(msg, errors.CategoryNotFound)
	case status == http.StatusConflict:
		return errors.New(msg, errors.CategoryConflict)
	case status == http.StatusTooManyRequests:
		return errors.New(msg, errors.CategoryRateLimit)
	case status == http.StatusUnprocessableEntity:
		return errors.New(msg, errors.CategoryValidation)
	case status >= http.StatusInternalServerError:
		return errors.New(msg, errors.CategoryOperation)
	default:
		return errors.New(msg, errors.CategoryBadInput)
	}
}
