package dashboard

import (
	"net/http"
	"net/url"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// MsgUsersLoadFailed is shown on the users page when a query fails
const MsgUsersLoadFailed = "Failed to load users. Please check your database connection and try again."

// HTTPAuthenticator is the session side of the HTTP layer
type HTTPAuthenticator interface {
	ProtectedRoute() router.MiddlewareFunc
	AdminRoute(users *UserActions) router.MiddlewareFunc
	AccessToken(c router.Context) string
	SetSession(c router.Context, session *AuthSession)
	Logout(c router.Context)
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
}

func RegisterDashboardRoutes[T any](app router.Router[T], opts ...DashboardControllerOption) *DashboardController {
	controller := NewDashboardController(opts...)

	protected := controller.Auther.ProtectedRoute()
	admin := controller.Auther.AdminRoute(controller.Users)

	app.Get("/", controller.Home).SetName("home.get")

	app.Get(controller.Routes.Login, controller.LoginShow).SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).SetName("sign-in.post")

	app.Get(controller.Routes.SignUp, controller.SignUpShow).SetName("sign-up.get")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).SetName("sign-up.post")
	app.Get(controller.Routes.SignUpSuccess, controller.SignUpSuccessShow).SetName("sign-up-success.get")
	app.Post(controller.Routes.ResendConfirmation, controller.ResendConfirmationPost).SetName("resend-confirmation.post")

	app.Get(controller.Routes.ForgotPassword, controller.ForgotPasswordShow).SetName("forgot-password.get")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).SetName("forgot-password.post")

	app.Get(controller.Routes.Confirm, controller.ConfirmEmail).SetName("auth-confirm.get")

	app.Get(controller.Routes.ResetPassword, controller.ResetPasswordShow, protected).SetName("reset-password.get")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost, protected).SetName("reset-password.post")

	app.Post(controller.Routes.Logout, controller.LogOut).SetName("sign-out.post")

	app.Get(controller.Routes.Dashboard, controller.DashboardShow, protected).SetName("dashboard.get")
	app.Get(controller.Routes.Users, controller.UsersIndex, protected, admin).SetName("users.index")
	app.Get(controller.Routes.Users+"/:id", controller.UserShow, protected, admin).SetName("users.show")
	app.Get(controller.Routes.Pricings, controller.PricingsShow, protected).SetName("pricings.get")

	return controller
}

type DashboardControllerRoutes struct {
	Login              string
	Logout             string
	SignUp             string
	SignUpSuccess      string
	ResendConfirmation string
	ForgotPassword     string
	ResetPassword      string
	Confirm            string
	Dashboard          string
	Users              string
	Pricings           string
}

type DashboardControllerViews struct {
	Login          string
	SignUp         string
	SignUpSuccess  string
	ForgotPassword string
	ResetPassword  string
	Dashboard      string
	UsersIndex     string
	UserShow       string
	UserNotFound   string
	Pricings       string
}

type DashboardController struct {
	Debug        bool
	Logger       Logger
	Actions      *AuthActions
	Users        *UserActions
	Routes       *DashboardControllerRoutes
	Views        *DashboardControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type DashboardControllerOption func(*DashboardController) *DashboardController

func NewDashboardController(opts ...DashboardControllerOption) *DashboardController {
	c := &DashboardController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &DashboardControllerRoutes{
			Login:              PathLogin,
			Logout:             "/logout",
			SignUp:             PathSignUp,
			SignUpSuccess:      PathSignUpSuccess,
			ResendConfirmation: "/resend-confirmation",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      PathResetPassword,
			Confirm:            PathAuthConfirm,
			Dashboard:          PathDashboard,
			Users:              PathDashboard + "/users",
			Pricings:           PathPricings,
		},
		Views: &DashboardControllerViews{
			Login:          "login",
			SignUp:         "sign_up",
			SignUpSuccess:  "sign_up_success",
			ForgotPassword: "forgot_password",
			ResetPassword:  "reset_password",
			Dashboard:      "dashboard",
			UsersIndex:     "users/index",
			UserShow:       "users/show",
			UserNotFound:   "users/not_found",
			Pricings:       "pricings",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Actions == nil {
		panic("Missing AuthActions in dashboard controller...")
	}

	if c.Users == nil {
		panic("Missing UserActions in dashboard controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in dashboard controller...")
	}

	return c
}

func (a *DashboardController) WithLogger(logger Logger) *DashboardController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *DashboardController) Home(ctx router.Context) error {
	return ctx.Redirect(a.Routes.Dashboard, http.StatusFound)
}

func (a *DashboardController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
		"record": SignInForm{},
	}))
}

func (a *DashboardController) LoginPost(ctx router.Context) error {
	payload := new(SignInForm)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign in parse payload", "error", err)
		return a.renderParseError(ctx, a.Views.Login)
	}

	if a.Debug {
		a.Logger.Debug("sign in", "email", payload.Email)
	}

	res := a.Actions.SignIn(ctx.Context(), *payload)
	if !res.OK() {
		return a.renderFormError(ctx, a.Views.Login, res, payload, SignInForm{Email: payload.Email})
	}

	a.Auther.SetSession(ctx, res.Session)

	redirect := a.Auther.GetRedirect(ctx, res.Redirect)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": res.Message,
	}).Redirect(redirect, router.StatusSeeOther)
}

func (a *DashboardController) SignUpShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUp, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
		"record": SignUpForm{},
	}))
}

func (a *DashboardController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpForm)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload", "error", err)
		return a.renderParseError(ctx, a.Views.SignUp)
	}

	res := a.Actions.SignUp(ctx.Context(), *payload)
	if !res.OK() {
		return a.renderFormError(ctx, a.Views.SignUp, res, payload, SignUpForm{
			Email:    payload.Email,
			FullName: payload.FullName,
		})
	}

	q := url.Values{}
	q.Set("email", normalizeEmail(payload.Email))

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": res.Message,
	}).Redirect(res.Redirect+"?"+q.Encode(), router.StatusSeeOther)
}

func (a *DashboardController) SignUpSuccessShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUpSuccess, MergeTemplateData(ctx, router.ViewContext{
		"email": ctx.Query("email"),
	}))
}

func (a *DashboardController) ResendConfirmationPost(ctx router.Context) error {
	payload := new(EmailForm)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend confirmation parse payload", "error", err)
		return a.renderParseError(ctx, a.Views.SignUpSuccess)
	}

	res := a.Actions.ResendConfirmation(ctx.Context(), *payload)

	view := router.ViewContext{
		"email":  payload.Email,
		"result": res,
	}

	var richErr *errors.Error
	if errors.As(res.Err, &richErr) && richErr.TextCode == TextCodeResendCooldown {
		view["retry_after"] = richErr.Metadata["retry_after"]
	}

	status := http.StatusOK
	if !res.OK() {
		status = statusFor(res.Err)
	}

	return ctx.Status(status).Render(a.Views.SignUpSuccess, MergeTemplateData(ctx, view))
}

func (a *DashboardController) ForgotPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ForgotPassword, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
		"record": EmailForm{},
	}))
}

func (a *DashboardController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(EmailForm)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return a.renderParseError(ctx, a.Views.ForgotPassword)
	}

	origin := RequestOrigin{
		Host:  ctx.Header("Host"),
		Proto: ctx.Header("X-Forwarded-Proto"),
	}

	res := a.Actions.ForgotPassword(ctx.Context(), *payload, origin)
	if !res.OK() {
		return a.renderFormError(ctx, a.Views.ForgotPassword, res, payload, EmailForm{Email: payload.Email})
	}

	return ctx.Render(a.Views.ForgotPassword, MergeTemplateData(ctx, router.ViewContext{
		"record": EmailForm{},
		"result": res,
	}))
}

func (a *DashboardController) ConfirmEmail(ctx router.Context) error {
	res := a.Actions.VerifyEmailLink(
		ctx.Context(),
		ctx.Query("token_hash"),
		ctx.Query("type"),
		ctx.Query("next"),
	)

	if !res.OK() {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  res.Message,
			"system_message": MsgInvalidLink,
		}).Redirect(res.Redirect, router.StatusSeeOther)
	}

	a.Auther.SetSession(ctx, res.Session)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": res.Message,
	}).Redirect(res.Redirect, router.StatusSeeOther)
}

func (a *DashboardController) ResetPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ResetPassword, MergeTemplateData(ctx, router.ViewContext{
		"errors": nil,
	}))
}

func (a *DashboardController) ResetPasswordPost(ctx router.Context) error {
	payload := new(UpdatePasswordForm)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return a.renderParseError(ctx, a.Views.ResetPassword)
	}

	res := a.Actions.UpdatePassword(ctx.Context(), a.Auther.AccessToken(ctx), *payload)
	if !res.OK() {
		return a.renderFormError(ctx, a.Views.ResetPassword, res, payload, nil)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": res.Message,
	}).Redirect(res.Redirect, router.StatusSeeOther)
}

func (a *DashboardController) LogOut(ctx router.Context) error {
	res := a.Actions.SignOut(ctx.Context(), a.Auther.AccessToken(ctx))
	if !res.OK() {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  res.Message,
			"system_message": "Error signing out",
		}).Redirect(a.Routes.Dashboard, router.StatusSeeOther)
	}

	a.Auther.Logout(ctx)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": res.Message,
	}).Redirect(res.Redirect, router.StatusSeeOther)
}

func (a *DashboardController) DashboardShow(ctx router.Context) error {
	return ctx.Render(a.Views.Dashboard, MergeTemplateData(ctx, router.ViewContext{}))
}

func (a *DashboardController) PricingsShow(ctx router.Context) error {
	return ctx.Render(a.Views.Pricings, MergeTemplateData(ctx, router.ViewContext{}))
}

func (a *DashboardController) UsersIndex(ctx router.Context) error {
	sortBy := ctx.Query("sort")
	dir := ParseSortDirection(ctx.Query("dir"))

	users, err := a.Users.ListUsersTable(ctx.Context(), sortBy, dir)
	if err != nil {
		return a.renderUsersError(ctx, err)
	}

	stats, err := a.Users.GetUserStats(ctx.Context())
	if err != nil {
		return a.renderUsersError(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("user stats", "stats", print.MaybePrettyJSON(stats))
	}

	return ctx.Render(a.Views.UsersIndex, MergeTemplateData(ctx, router.ViewContext{
		"users":          users,
		"stats":          stats,
		"active_percent": stats.ActivePercent(),
		"pending_pct":    stats.PendingPercent(),
		"sort":           sortBy,
		"dir":            string(dir),
	}))
}

func (a *DashboardController) UserShow(ctx router.Context) error {
	id := ctx.Param("id", "")

	user, err := a.Users.GetUserByID(ctx.Context(), id)
	if err != nil {
		if IsUserNotFound(err) {
			return ctx.Status(http.StatusNotFound).Render(a.Views.UserNotFound, MergeTemplateData(ctx, router.ViewContext{
				"id": id,
			}))
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.UserShow, MergeTemplateData(ctx, router.ViewContext{
		"user": user,
	}))
}

func (a *DashboardController) renderUsersError(ctx router.Context, err error) error {
	a.Logger.Error("users page load failed", "error", err)
	return ctx.Status(http.StatusInternalServerError).Render(a.Views.UsersIndex, MergeTemplateData(ctx, router.ViewContext{
		"load_error": MsgUsersLoadFailed,
	}))
}

func (a *DashboardController) renderParseError(ctx router.Context, view string) error {
	return flash.WithError(ctx, router.ViewContext{
		"error_message":  "Failed to parse form",
		"system_message": "Error parsing body",
	}).Status(http.StatusBadRequest).Render(view, MergeTemplateData(ctx, router.ViewContext{
		"errors": map[string]string{"form": "Failed to parse form"},
	}))
}

// renderFormError re-renders a form with the action message. Field level
// messages are only computed for invalid input.
func (a *DashboardController) renderFormError(ctx router.Context, view string, res ActionResult, payload Form, record any) error {
	data := router.ViewContext{
		"record": record,
		"result": res,
	}

	if res.Err == ErrInvalidFields {
		payload.Normalize()
		data["validation"] = FormatValidationErrorToMap(payload.Validate())
	}

	return ctx.Status(statusFor(res.Err)).Render(view, MergeTemplateData(ctx, data))
}

func statusFor(err error) int {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code >= 400 {
		return richErr.Code
	}
	return http.StatusOK
}

func defaultErrHandler(c router.Context, err error) error {
	code := http.StatusInternalServerError
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code >= 400 {
		code = richErr.Code
	}
	return c.Status(code).Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
