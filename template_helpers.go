package dashboard

import (
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/goliatone/go-dashboard/middleware/csrf"
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns the helper functions the page templates use.
// Register them as globals on the view engine.
//
// In templates:
//
//	{{ status_label(user) }}
//	<span class="{{ status_class(user) }}">
//	{{ format_date(user.CreatedAt) }}
//	<a href="{{ sort_link("full_name", sort, dir) }}">Name</a>
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"display_name":     displayName,
		"status_label":     statusLabel,
		"status_class":     statusClass,
		"role_label":       RoleLabel,
		"initials":         userInitials,
		"billing_line":     billingLine,
		"text":             textOr,
		"format_date":      formatDate,
		"percent_of":       PercentOf,
		"sort_link":        sortLink,
		"user_statuses": []UserStatus{
			UserStatusActive,
			UserStatusInvited,
			UserStatusPending,
			UserStatusInactive,
			UserStatusSuspended,
		},
	}
}

// TemplateHelpersWithUser returns template helpers with a specific user
// set as current_user.
func TemplateHelpersWithUser(user *SessionUser) map[string]any {
	helpers := TemplateHelpers()
	if user != nil {
		helpers[TemplateUserKey] = user
	}
	return helpers
}

// MergeTemplateData adds the request's session user and CSRF field to data
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	out := router.ViewContext{}
	if user, ok := GetRouterUser(ctx, TemplateUserKey); ok {
		out[TemplateUserKey] = user
	}
	if token, ok := ctx.Locals(csrf.DefaultContextKey).(string); ok && token != "" {
		out[csrf.DefaultContextKey] = token
		out[csrf.DefaultFieldContextKey] = csrf.HiddenField(csrf.DefaultFormFieldName, token)
	}
	maps.Copy(out, data)
	return out
}

func isAuthenticated(user any) bool {
	u, ok := user.(*SessionUser)
	return ok && u != nil && u.ID != ""
}

func displayName(user any) string {
	u, ok := user.(*SessionUser)
	if !ok {
		return ""
	}
	return u.DisplayName()
}

func statusLabel(u *UserRecord) string {
	return u.DerivedStatus().Label()
}

func statusClass(u *UserRecord) string {
	return u.DerivedStatus().BadgeClass()
}

func userInitials(u *UserRecord) string {
	if u == nil {
		return "?"
	}
	return Initials(u.Name())
}

func billingLine(u *UserRecord) string {
	if u == nil {
		return ""
	}
	return BillingLine(u.BillingAddress)
}

func textOr(s *string, fallback string) string {
	if v := deref(s); v != "" {
		return v
	}
	return fallback
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// sortLink toggles the direction when column is the current sort column
func sortLink(column, current, dir string) string {
	next := SortAsc
	if column == current && ParseSortDirection(dir) == SortAsc {
		next = SortDesc
	}
	q := url.Values{}
	q.Set("sort", column)
	q.Set("dir", string(next))
	return fmt.Sprintf("?%s", q.Encode())
}
