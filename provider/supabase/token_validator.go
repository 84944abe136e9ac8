package supabase

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-errors"
)

// Claims are the access token claims GoTrue issues
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	SessionID    string                 `json:"session_id,omitempty"`
	UserMetadata dashboard.UserMetadata `json:"user_metadata"`
	AppMetadata  struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
}

// SessionUser maps the claims to a session user without a network call
func (c *Claims) SessionUser() *dashboard.SessionUser {
	return &dashboard.SessionUser{
		ID:           c.Subject,
		Email:        c.Email,
		Role:         c.Role,
		UserMetadata: c.UserMetadata,
	}
}

// TokenValidator validates access tokens locally. It uses the project
// JWKS when configured and the HS256 secret otherwise.
type TokenValidator struct {
	issuer   string
	audience string
	keyFunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
	methods  []string
}

// NewTokenValidator returns nil and no error when cfg has neither a JWKS
// URL nor a secret, since local validation is optional.
func NewTokenValidator(cfg Config) (*TokenValidator, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase: project url is required")
	}

	v := &TokenValidator{
		issuer:   cfg.issuer(),
		audience: defaultAudience,
	}

	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			Client:            cfg.HTTPClient,
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("supabase: failed to load JWKS: %w", err)
		}
		v.jwks = jwks
		v.keyFunc = jwks.Keyfunc
		v.methods = []string{"RS256", "ES256"}
	case cfg.JWTSecret != "":
		secret := []byte(cfg.JWTSecret)
		v.keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, nil
	}

	return v, nil
}

// Validate parses tokenString and checks its signature, issuer, audience
// and expiry.
func (v *TokenValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, normalizeValidationError(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, normalizeValidationError(jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}

// Close stops the JWKS background refresh
func (v *TokenValidator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func normalizeValidationError(err error) error {
	msg := "invalid access token"
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		msg = "access token expired"
	}

	return errors.Wrap(err, errors.CategoryAuth, msg).
		WithTextCode(TextCodeTokenInvalid).
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{
			"provider": "supabase",
			"cause":    err.Error(),
		})
}
