// Package csrf protects the dashboard forms with stateless, signed tokens.
//
// A token is an HMAC over a timestamp, a random nonce and a session key. The
// session key is derived from the session cookie when present and from the
// client IP otherwise, so a token minted for one session cannot be replayed
// by another.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	TextCodeTokenMissing  = "CSRF_TOKEN_MISSING"
	TextCodeTokenMismatch = "CSRF_TOKEN_MISMATCH"
	TextCodeTokenExpired  = "CSRF_TOKEN_EXPIRED"
)

var (
	ErrTokenMissing = errors.New("CSRF token missing", errors.CategoryBadInput).
			WithTextCode(TextCodeTokenMissing).
			WithCode(http.StatusBadRequest)
	ErrTokenMismatch = errors.New("CSRF token mismatch", errors.CategoryAuthz).
				WithTextCode(TextCodeTokenMismatch).
				WithCode(http.StatusForbidden)
	ErrTokenExpired = errors.New("CSRF token expired", errors.CategoryAuthz).
			WithTextCode(TextCodeTokenExpired).
			WithCode(http.StatusForbidden)
)

// MinSecureKeyLength is the shortest accepted signing key
const MinSecureKeyLength = 32

// DefaultTokenLength is the nonce length in bytes
const DefaultTokenLength = 32

// DefaultContextKey is where the token is stored in locals
const DefaultContextKey = "csrf_token"

// DefaultFieldContextKey is where the rendered hidden input is stored
const DefaultFieldContextKey = "csrf_field"

// DefaultFormFieldName is the form field carrying the token
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the header carrying the token
const DefaultHeaderName = "X-CSRF-Token"

// Config defines the configuration for the CSRF middleware
type Config struct {
	// Skip bypasses the middleware when it returns true
	Skip func(router.Context) bool

	// SecureKey signs the tokens, at least MinSecureKeyLength bytes. A
	// random key is generated when empty, which invalidates tokens on
	// restart.
	SecureKey []byte

	// SessionCookie names the cookie the session key is derived from
	SessionCookie string

	// SessionKey overrides how the session key is derived
	SessionKey func(router.Context) string

	TokenLength   int
	ContextKey    string
	FormFieldName string
	HeaderName    string
	SafeMethods   []string

	// Expiration is how long a token is accepted after it was minted
	Expiration time.Duration

	ErrorHandler router.ErrorHandler

	// Now is the clock used to mint and check tokens
	Now func() time.Time
}

// New creates the CSRF middleware. Every request gets a fresh token in
// locals, unsafe methods must echo a valid token in the form or header.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			sessionKey := cfg.SessionKey(ctx)

			token, err := generateToken(cfg, sessionKey)
			if err != nil {
				return cfg.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryInternal, "failed to generate CSRF token"))
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(DefaultFieldContextKey, HiddenField(cfg.FormFieldName, token))

			if slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
				return next(ctx)
			}

			if err := validateToken(cfg, extractToken(ctx, cfg), sessionKey); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return next(ctx)
		}
	}
}

// HiddenField renders the hidden input that carries token
func HiddenField(fieldName, token string) string {
	return `<input type="hidden" name="` + html.EscapeString(fieldName) + `" value="` + html.EscapeString(token) + `">`
}

// SessionKeyFromCookie derives the session key from the named cookie and
// falls back to the client IP
func SessionKeyFromCookie(cookieName string) func(router.Context) string {
	return func(ctx router.Context) string {
		if cookieName != "" {
			if v := strings.TrimSpace(ctx.Cookies(cookieName)); v != "" {
				sum := sha256.Sum256([]byte(v))
				return "s" + hex.EncodeToString(sum[:16])
			}
		}
		return "ip" + ctx.IP()
	}
}

func generateToken(cfg Config, sessionKey string) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", cfg.Now().UTC().Unix(), hex.EncodeToString(nonce), sessionKey)
	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))

	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(cfg Config, token, sessionKey string) error {
	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(sessionKey)) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 && cfg.Now().UTC().After(time.Unix(timestamp, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func extractToken(ctx router.Context, cfg Config) string {
	if v := strings.TrimSpace(ctx.FormValue(cfg.FormFieldName)); v != "" {
		return v
	}
	return strings.TrimSpace(ctx.Header(cfg.HeaderName))
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}
	if cfg.Expiration == 0 {
		cfg.Expiration = 12 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionKey == nil {
		cfg.SessionKey = SessionKeyFromCookie(cfg.SessionCookie)
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "CSRF validation error").
			WithCode(http.StatusInternalServerError)
	}
	return ctx.Status(richErr.Code).SendString(richErr.Message)
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < MinSecureKeyLength {
			panic(fmt.Errorf("csrf: secure key must be at least %d bytes, got %d", MinSecureKeyLength, len(current)))
		}
		return current
	}
	key := make([]byte, MinSecureKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
