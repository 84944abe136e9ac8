package dashboard

import "strings"

// UserStatus is the displayed status of a user record.
// It is derived from stored fields and never persisted.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusInvited   UserStatus = "invited"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
)

// DeriveStatus maps the stored tri-state status and the subscription id to
// the displayed status:
//
//	nil                       -> pending
//	false                     -> inactive
//	true with subscription    -> active
//	true without subscription -> invited
//
// Suspended is never derived.
func DeriveStatus(status *bool, subscriptionID *string) UserStatus {
	switch {
	case status == nil:
		return UserStatusPending
	case !*status:
		return UserStatusInactive
	case subscriptionID != nil && strings.TrimSpace(*subscriptionID) != "":
		return UserStatusActive
	default:
		return UserStatusInvited
	}
}

// Label returns the capitalized status
func (s UserStatus) Label() string {
	return capitalize(string(s))
}

// BadgeClass returns the css class used to render the status badge
func (s UserStatus) BadgeClass() string {
	switch s {
	case UserStatusActive:
		return "badge-success"
	case UserStatusInvited:
		return "badge-info"
	case UserStatusPending:
		return "badge-warning"
	case UserStatusSuspended:
		return "badge-destructive"
	default:
		return "badge-muted"
	}
}

// rank is used when sorting by status
func (s UserStatus) rank() int {
	switch s {
	case UserStatusActive:
		return 0
	case UserStatusInvited:
		return 1
	case UserStatusPending:
		return 2
	case UserStatusInactive:
		return 3
	case UserStatusSuspended:
		return 4
	default:
		return 5
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
