package dashboard

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// OTPType is the kind of one time token sent by email
type OTPType = string

const (
	// OTPTypeSignup confirms a new account
	OTPTypeSignup OTPType = "signup"
	// OTPTypeRecovery opens a password recovery session
	OTPTypeRecovery OTPType = "recovery"
	// OTPTypeEmail is a generic email link
	OTPTypeEmail OTPType = "email"
)

// UserMetadata is the free form metadata stored with an auth identity
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// SessionUser is the identity returned by the auth backend for a
// session. It is fetched per request and never persisted here.
type SessionUser struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	Role             string       `json:"role,omitempty"`
	UserMetadata     UserMetadata `json:"user_metadata"`
	CreatedAt        *time.Time   `json:"created_at,omitempty"`
	LastSignInAt     *time.Time   `json:"last_sign_in_at,omitempty"`
	EmailConfirmedAt *time.Time   `json:"email_confirmed_at,omitempty"`
}

// DisplayName returns the full name or the email local part
func (u *SessionUser) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.UserMetadata.FullName); name != "" {
		return name
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

// AuthSession is an issued backend session
type AuthSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type,omitempty"`
	ExpiresIn    int          `json:"expires_in,omitempty"`
	ExpiresAt    int64        `json:"expires_at,omitempty"`
	User         *SessionUser `json:"user,omitempty"`
}

// Expiration returns when the access token expires, falling back to
// fallback from now when the backend did not report it.
func (s *AuthSession) Expiration(now time.Time, fallback time.Duration) time.Time {
	if s == nil {
		return now.Add(fallback)
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if s.ExpiresIn > 0 {
		return now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return now.Add(fallback)
}

// SignUpRequest is what the backend needs to create an account
type SignUpRequest struct {
	Email           string
	Password        string
	Metadata        UserMetadata
	EmailRedirectTo string
}

// UserAttributes are the updatable attributes of the session user
type UserAttributes struct {
	Password string `json:"password,omitempty"`
}

// UserRole is the role stored in a user record
type UserRole = string

const (
	RoleSuperAdmin UserRole = "superadmin"
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleCashier    UserRole = "cashier"
	RoleUser       UserRole = "user"
)

// BillingAddress is stored as a structured column
type BillingAddress struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// PaymentMethod is stored as a structured column
type PaymentMethod struct {
	Type     string `json:"type,omitempty"`
	Brand    string `json:"brand,omitempty"`
	LastFour string `json:"last_four,omitempty"`
}

// UserRecord is a row in the users table
type UserRecord struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             string          `bun:"id,pk" json:"id"`
	FullName       *string         `bun:"full_name" json:"full_name"`
	Bio            *string         `bun:"bio" json:"bio"`
	Phone          *string         `bun:"phone" json:"phone"`
	AvatarURL      *string         `bun:"avatar_url" json:"avatar_url"`
	BillingAddress *BillingAddress `bun:"billing_address,type:jsonb" json:"billing_address"`
	PaymentMethod  *PaymentMethod  `bun:"payment_method,type:jsonb" json:"payment_method"`
	Status         *bool           `bun:"status" json:"status"`
	CustomerID     *string         `bun:"customer_id" json:"customer_id"`
	SubscriptionID *string         `bun:"subscription_id" json:"subscription_id"`
	Role           UserRole        `bun:"role,notnull" json:"role"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// UserColumns is the fixed projection used for user queries
var UserColumns = []string{
	"id",
	"full_name",
	"bio",
	"phone",
	"avatar_url",
	"billing_address",
	"payment_method",
	"status",
	"customer_id",
	"subscription_id",
	"role",
	"created_at",
}

// DerivedStatus returns the displayed status of the record
func (u *UserRecord) DerivedStatus() UserStatus {
	if u == nil {
		return UserStatusPending
	}
	return DeriveStatus(u.Status, u.SubscriptionID)
}

// Name returns the full name or an empty string
func (u *UserRecord) Name() string {
	return deref(u.FullName)
}

// SortDirection is the ordering direction of a query
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// UserQuery describes how a user listing is ordered
type UserQuery struct {
	OrderBy   string
	Direction SortDirection
}

// DefaultUserQuery orders users newest first
func DefaultUserQuery() UserQuery {
	return UserQuery{
		OrderBy:   "created_at",
		Direction: SortDesc,
	}
}

// StatusFilter restricts a count by the stored status column
type StatusFilter int

const (
	// StatusAny does not filter on status
	StatusAny StatusFilter = iota
	// StatusTrue matches status = true
	StatusTrue
	// StatusNull matches status IS NULL, never false
	StatusNull
)

// UserFilter describes a count only query
type UserFilter struct {
	CreatedBefore *time.Time
	CreatedSince  *time.Time
	Status        StatusFilter
}

// UserStats are the aggregate numbers shown on the users page
type UserStats struct {
	TotalUsers           int     `json:"total_users"`
	NewUsers             int     `json:"new_users"`
	ActiveUsers          int     `json:"active_users"`
	PendingVerifications int     `json:"pending_verifications"`
	GrowthRate           float64 `json:"growth_rate"`
}

// PendingPercent is the share of pending users, in whole percent
func (s UserStats) PendingPercent() int {
	return PercentOf(s.PendingVerifications, s.TotalUsers)
}

// ActivePercent is the share of active users, in whole percent
func (s UserStats) ActivePercent() int {
	return PercentOf(s.ActiveUsers, s.TotalUsers)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
