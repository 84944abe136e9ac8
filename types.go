package dashboard

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds dashboard options
type Config interface {
	GetAppURL() string
	GetCookieName() string
	GetCookieSecure() bool
	GetTokenExpiration() int
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetAdminRoles() []string
	GetResendCooldown() time.Duration
}

// AuthProvider is the backend auth surface the actions delegate to.
// Implementations return errors that carry the backend message, see
// BackendMessage.
type AuthProvider interface {
	GetUser(ctx context.Context, accessToken string) (*SessionUser, error)
	SignUp(ctx context.Context, req SignUpRequest) (*SessionUser, error)
	SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error)
	Resend(ctx context.Context, otpType OTPType, email, redirectTo string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*SessionUser, error)
	SignOut(ctx context.Context, accessToken string) error
	VerifyOTP(ctx context.Context, otpType OTPType, tokenHash string) (*AuthSession, error)
}

// UserStore is the row query surface against the users table
type UserStore interface {
	ListUsers(ctx context.Context, q UserQuery) ([]*UserRecord, error)
	GetUser(ctx context.Context, id string) (*UserRecord, error)
	CountUsers(ctx context.Context, f UserFilter) (int, error)
}

// Cooldown limits how often an action can run for a given key.
// Acquire returns false and the remaining wait when the key is cooling down.
type Cooldown interface {
	Acquire(ctx context.Context, key string) (bool, time.Duration, error)
	// Reset drops the cooldown for key so the next Acquire is allowed
	Reset(ctx context.Context, key string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] DASH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] DASH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] DASH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] DASH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
