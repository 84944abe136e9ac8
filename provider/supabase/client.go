package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// AuthClient implements dashboard.AuthProvider against the GoTrue API.
// Session calls go through the gotrue client. Sign up, resend, recover
// and token hash verification need request fields the gotrue client does
// not send, so those are posted directly.
type AuthClient struct {
	cfg       Config
	http      *http.Client
	gotrue    gotrue.Client
	validator *TokenValidator
	logger    dashboard.Logger
}

// ClientOption configures AuthClient
type ClientOption func(*AuthClient)

// WithTokenValidator checks access tokens locally before calling /user
func WithTokenValidator(v *TokenValidator) ClientOption {
	return func(c *AuthClient) {
		c.validator = v
	}
}

// WithLogger sets the client logger
func WithLogger(logger dashboard.Logger) ClientOption {
	return func(c *AuthClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAuthClient returns a GoTrue client for the project in cfg
func NewAuthClient(cfg Config, opts ...ClientOption) (*AuthClient, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &AuthClient{
		cfg:  cfg,
		http: cfg.HTTPClient,
		gotrue: gotrue.New("", cfg.AnonKey).
			WithCustomGoTrueURL(cfg.authURL()).
			WithClient(*cfg.HTTPClient),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type signUpBody struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     dashboard.UserMetadata `json:"data"`
}

type resendBody struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

type recoverBody struct {
	Email string `json:"email"`
}

type verifyBody struct {
	Type      string `json:"type"`
	TokenHash string `json:"token_hash"`
}

// GetUser returns the user that owns accessToken
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*dashboard.SessionUser, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, dashboard.ErrNoSession
	}

	if c.validator != nil {
		if _, err := c.validator.Validate(accessToken); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.gotrue.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, c.clientError(err, "/user")
	}
	return sessionUser(res.User), nil
}

// SignUp creates an account. With email confirmation enabled GoTrue
// answers with the bare user, otherwise with a session.
func (c *AuthClient) SignUp(ctx context.Context, req dashboard.SignUpRequest) (*dashboard.SessionUser, error) {
	query := url.Values{}
	if req.EmailRedirectTo != "" {
		query.Set("redirect_to", req.EmailRedirectTo)
	}

	var raw json.RawMessage
	body := signUpBody{Email: req.Email, Password: req.Password, Data: req.Metadata}
	if err := c.do(ctx, http.MethodPost, "/signup", query, "", body, &raw); err != nil {
		return nil, err
	}

	session := &dashboard.AuthSession{}
	if err := json.Unmarshal(raw, session); err == nil && session.User != nil && session.User.ID != "" {
		return session.User, nil
	}

	user := &dashboard.SessionUser{}
	if err := json.Unmarshal(raw, user); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "unable to decode sign up response")
	}
	return user, nil
}

// SignInWithPassword opens a session with the password grant
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*dashboard.AuthSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.gotrue.WithToken(c.cfg.AnonKey).SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, c.clientError(err, "/token")
	}
	return authSession(res.Session), nil
}

// Resend sends the confirmation email of otpType again
func (c *AuthClient) Resend(ctx context.Context, otpType dashboard.OTPType, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, http.MethodPost, "/resend", query, "", resendBody{Type: otpType, Email: email}, nil)
}

// ResetPasswordForEmail sends a recovery email that links to redirectTo
func (c *AuthClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, http.MethodPost, "/recover", query, "", recoverBody{Email: email}, nil)
}

// UpdateUser changes attributes of the session user
func (c *AuthClient) UpdateUser(ctx context.Context, accessToken string, attrs dashboard.UserAttributes) (*dashboard.SessionUser, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, dashboard.ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := types.UpdateUserRequest{}
	if attrs.Password != "" {
		req.Password = &attrs.Password
	}

	res, err := c.gotrue.WithToken(accessToken).UpdateUser(req)
	if err != nil {
		return nil, c.clientError(err, "/user")
	}
	return sessionUser(res.User), nil
}

// SignOut revokes the refresh tokens of the session
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.gotrue.WithToken(accessToken).Logout(); err != nil {
		return c.clientError(err, "/logout")
	}
	return nil
}

// VerifyOTP exchanges an email link token hash for a session
func (c *AuthClient) VerifyOTP(ctx context.Context, otpType dashboard.OTPType, tokenHash string) (*dashboard.AuthSession, error) {
	session := &dashboard.AuthSession{}
	body := verifyBody{Type: otpType, TokenHash: tokenHash}
	if err := c.do(ctx, http.MethodPost, "/verify", nil, "", body, session); err != nil {
		return nil, err
	}
	return session, nil
}

// statusErrorPattern matches the errors the gotrue client builds for non
// 2xx answers
var statusErrorPattern = regexp.MustCompile(`(?s)^response status code (\d{3})(?:: (.*))?$`)

// clientError maps a gotrue client error to the same rich errors the
// direct calls return
func (c *AuthClient) clientError(err error, path string) error {
	if m := statusErrorPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		apiErr := decodeAPIError(status, []byte(m[2]))
		c.logger.Debug("supabase request rejected", "path", path, "status", status, "error_code", apiErr.TextCode)
		return apiErr.WithMetadata(map[string]any{"path": path})
	}

	if stderrors.Is(err, types.ErrInvalidTokenRequest) {
		return errors.Wrap(err, errors.CategoryBadInput, "Email and password are required").
			WithCode(http.StatusBadRequest)
	}

	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		c.logger.Error("supabase request failed", "path", path, "error", err)
		return unavailable(err, path)
	}

	return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("unable to decode %s response", path))
}

func unavailable(err error, path string) *errors.Error {
	return errors.Wrap(err, errors.CategoryOperation, "Unable to reach the authentication service").
		WithTextCode(TextCodeUnavailable).
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{"path": path})
}

func (c *AuthClient) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	endpoint := c.cfg.authURL() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "unable to encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to build request")
	}

	if bearer == "" {
		bearer = c.cfg.AnonKey
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("supabase request failed", "method", method, "path", path, "error", err)
		return unavailable(err, path)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "unable to read response")
	}

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(res.StatusCode, data)
		c.logger.Debug("supabase request rejected", "method", method, "path", path, "status", res.StatusCode, "error_code", apiErr.TextCode)
		return apiErr.WithMetadata(map[string]any{"path": path})
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("unable to decode %s response", path))
	}
	return nil
}

func sessionUser(u types.User) *dashboard.SessionUser {
	out := &dashboard.SessionUser{
		Email:            u.Email,
		Role:             u.Role,
		LastSignInAt:     u.LastSignInAt,
		EmailConfirmedAt: u.EmailConfirmedAt,
		UserMetadata: dashboard.UserMetadata{
			FullName:  metadataString(u.UserMetadata, "full_name"),
			AvatarURL: metadataString(u.UserMetadata, "avatar_url"),
		},
	}
	if u.ID != uuid.Nil {
		out.ID = u.ID.String()
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

func authSession(s types.Session) *dashboard.AuthSession {
	out := &dashboard.AuthSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		ExpiresAt:    s.ExpiresAt,
	}
	if s.User.ID != uuid.Nil {
		out.User = sessionUser(s.User)
	}
	return out
}

func metadataString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
