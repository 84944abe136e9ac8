package dashboard

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AccessTokenLocalsKey is where the guard leaves the session token
const AccessTokenLocalsKey = "access_token"

type RouteAuthenticator struct {
	actions          *AuthActions
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

func NewHTTPAuthenticator(actions *AuthActions, cfg Config) (*RouteAuthenticator, error) {
	if actions == nil {
		return nil, errors.New("auth actions are required", errors.CategoryBadInput)
	}

	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		actions:        actions,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute resolves the session user from the access token cookie.
// Requests without a user are sent to the login page with the original
// path remembered.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			token := a.AccessToken(ctx)
			user := a.actions.CurrentUser(ctx.Context(), token)
			if user == nil {
				return a.AuthErrorHandler(ctx, ErrNoSession)
			}

			ctx.Locals(TemplateUserKey, user)
			ctx.Locals(AccessTokenLocalsKey, token)
			ctx.SetContext(WithAccessToken(WithContext(ctx.Context(), user), token))

			return next(ctx)
		}
	}
}

// AdminRoute restricts a route to session users whose user record holds
// one of the configured admin roles. It must run after ProtectedRoute.
// With no admin roles configured any signed in user passes.
func (a *RouteAuthenticator) AdminRoute(users *UserActions) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			allowed := a.cfg.GetAdminRoles()
			if len(allowed) == 0 {
				return next(ctx)
			}

			user, ok := GetRouterUser(ctx, TemplateUserKey)
			if !ok {
				return a.AuthErrorHandler(ctx, ErrNoSession)
			}

			record, err := users.GetUserByID(ctx.Context(), user.ID)
			if err != nil && !IsUserNotFound(err) {
				return a.ErrorHandler(ctx, err)
			}

			if record == nil || !HasAnyRole(record.Role, allowed) {
				a.Logger.Info("admin route rejected", "user_id", user.ID, "path", ctx.OriginalURL())
				return a.ErrorHandler(ctx, ErrForbidden)
			}

			return next(ctx)
		}
	}
}

// AccessToken returns the session token from locals or the cookie
func (a *RouteAuthenticator) AccessToken(ctx router.Context) string {
	if raw, ok := ctx.Locals(AccessTokenLocalsKey).(string); ok && raw != "" {
		return raw
	}
	return strings.TrimSpace(ctx.Cookies(a.cfg.GetCookieName()))
}

// SetSession stores the access token cookie for an opened session
func (a *RouteAuthenticator) SetSession(ctx router.Context, session *AuthSession) {
	if session == nil || session.AccessToken == "" {
		return
	}
	a.setCookieToken(ctx, session.AccessToken, session.Expiration(time.Now(), a.cookieDuration))
}

// Logout removes the session cookie
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetCookieName())
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return safeRedirect(r, a.cfg.GetRejectedRouteDefault())
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    val,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(PathLogin, statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth:
		return a.AuthErrorHandler(c, richErr)
	case errors.CategoryAuthz:
		return c.Status(richErr.Code).Render("errors/403", MergeTemplateData(c, router.ViewContext{
			"error": richErr,
		}))
	default:
		return c.Status(richErr.Code).Render("errors/500", MergeTemplateData(c, router.ViewContext{
			"error": richErr,
		}))
	}
}
