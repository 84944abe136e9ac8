package dashboard

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var tokenCtxKey = &contextKey{"access_token"}

type contextKey struct {
	name string
}

// WithContext sets the session user in the given context
func WithContext(r context.Context, user *SessionUser) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the session user from the context.
func FromContext(ctx context.Context) (*SessionUser, bool) {
	raw, ok := ctx.Value(userCtxKey).(*SessionUser)
	return raw, ok && raw != nil
}

// WithAccessToken stores the session access token so backends can run
// row queries on behalf of the signed in user.
func WithAccessToken(r context.Context, token string) context.Context {
	return context.WithValue(r, tokenCtxKey, token)
}

// AccessTokenFromContext returns the access token stored by WithAccessToken
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(string)
	return raw, ok && raw != ""
}

// GetRouterUser extracts the session user from the router context
func GetRouterUser(ctx router.Context, key string) (*SessionUser, bool) {
	if key == "" {
		key = TemplateUserKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*SessionUser)
	return user, ok && user != nil
}
