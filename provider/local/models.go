package local

import (
	"time"

	"github.com/goliatone/go-dashboard"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the auth identity of a self hosted user
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               uuid.UUID              `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email            string                 `bun:"email,notnull" json:"email"`
	PasswordHash     string                 `bun:"password_hash,notnull" json:"-"`
	Metadata         dashboard.UserMetadata `bun:"metadata,type:jsonb" json:"user_metadata"`
	Role             string                 `bun:"role,notnull" json:"role"`
	EmailConfirmedAt *time.Time             `bun:"email_confirmed_at" json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time             `bun:"last_sign_in_at" json:"last_sign_in_at,omitempty"`
	LoginAttempts    int                    `bun:"login_attempts,notnull,default:0" json:"login_attempts,omitempty"`
	LoginAttemptAt   *time.Time             `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	CreatedAt        time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time              `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Confirmed reports whether the email was verified
func (a *Account) Confirmed() bool {
	return a != nil && a.EmailConfirmedAt != nil
}

// SessionUser maps the account to the session user the dashboard shows
func (a *Account) SessionUser() *dashboard.SessionUser {
	if a == nil {
		return nil
	}
	created := a.CreatedAt
	return &dashboard.SessionUser{
		ID:               a.ID.String(),
		Email:            a.Email,
		Role:             a.Role,
		UserMetadata:     a.Metadata,
		CreatedAt:        &created,
		LastSignInAt:     a.LastSignInAt,
		EmailConfirmedAt: a.EmailConfirmedAt,
	}
}

// OneTimeToken backs confirmation and recovery email links
type OneTimeToken struct {
	bun.BaseModel `bun:"table:one_time_tokens,alias:ott"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id"`
	AccountID     uuid.UUID         `bun:"account_id,notnull,type:uuid" json:"account_id"`
	Type          dashboard.OTPType `bun:"type,notnull" json:"type"`
	TokenHash     string            `bun:"token_hash,notnull" json:"-"`
	RedirectTo    string            `bun:"redirect_to" json:"redirect_to,omitempty"`
	ConsumedAt    *time.Time        `bun:"consumed_at" json:"consumed_at,omitempty"`
	ExpiresAt     time.Time         `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Usable reports whether the token can still be exchanged at now
func (t *OneTimeToken) Usable(now time.Time) bool {
	return t != nil && t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
