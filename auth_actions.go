package dashboard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	MsgSignUpSuccess      = "Account created successfully!"
	MsgSignInSuccess      = "Signed in successfully."
	MsgConfirmationResent = "Confirmation email sent. Please check your email."
	MsgPasswordResetSent  = "Password reset email sent. Please check your email."
	MsgPasswordUpdated    = "Password updated successfully."
	MsgSignedOut          = "Signed out successfully."
	MsgEmailConfirmed     = "Email confirmed successfully."
	MsgInvalidLink        = "The link is invalid or has expired."
	MsgResendCooldownFmt  = "Please wait %d seconds before requesting another email."
)

// DefaultResendCooldown is the wait between two confirmation emails for
// the same address
const DefaultResendCooldown = 60 * time.Second

const resendCooldownPrefix = "resend-confirmation:"

const (
	PathLogin         = "/login"
	PathSignUp        = "/sign-up"
	PathSignUpSuccess = "/sign-up-success"
	PathPricings      = "/pricings"
	PathDashboard     = "/dashboard"
	PathResetPassword = "/reset-password"
	PathAuthConfirm   = "/auth/confirm"
)

// RequestOrigin is the scheme and host the request came in on, used to
// build callback links.
type RequestOrigin struct {
	Host  string
	Proto string
}

// URL returns the absolute URL for path on this origin. Proto defaults
// to http.
func (o RequestOrigin) URL(path string) string {
	proto := strings.TrimSpace(o.Proto)
	if i := strings.Index(proto, ","); i >= 0 {
		proto = strings.TrimSpace(proto[:i])
	}
	if proto == "" {
		proto = "http"
	}
	return fmt.Sprintf("%s://%s%s", proto, strings.TrimSpace(o.Host), path)
}

// AuthActions validates input and delegates to the auth backend
type AuthActions struct {
	provider AuthProvider
	cooldown Cooldown
	appURL   string
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// AuthActionsOption configures AuthActions
type AuthActionsOption func(*AuthActions)

// WithCooldown enforces a resend confirmation cooldown keyed by email
func WithCooldown(c Cooldown) AuthActionsOption {
	return func(a *AuthActions) {
		a.cooldown = c
	}
}

// WithActionsLogger sets the logger
func WithActionsLogger(logger Logger) AuthActionsOption {
	return func(a *AuthActions) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithActivitySink sets the sink that receives auth events
func WithActivitySink(sink ActivitySink) AuthActionsOption {
	return func(a *AuthActions) {
		a.activity = normalizeActivitySink(sink)
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) AuthActionsOption {
	return func(a *AuthActions) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAuthActions creates the auth action layer
func NewAuthActions(provider AuthProvider, appURL string, opts ...AuthActionsOption) *AuthActions {
	a := &AuthActions{
		provider: provider,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// SignUp creates an account and sends the confirmation email
func (a *AuthActions) SignUp(ctx context.Context, form SignUpForm) ActionResult {
	if err := validateForm(&form); err != nil {
		a.logger.Debug("sign up validation failed", "error", err)
		return failure(ErrInvalidFields, "")
	}

	user, err := a.provider.SignUp(ctx, SignUpRequest{
		Email:    form.Email,
		Password: form.Password,
		Metadata: UserMetadata{
			FullName: form.FullName,
		},
		EmailRedirectTo: a.appURL + PathAuthConfirm,
	})
	if err != nil {
		a.logger.Error("sign up failed", "email", form.Email, "error", err)
		a.emit(ctx, ActivityEventSignUp, "", form.Email, false, nil)
		return failure(err, PathSignUp)
	}

	a.emit(ctx, ActivityEventSignUp, userID(user), form.Email, true, nil)

	return success(MsgSignUpSuccess, PathSignUpSuccess)
}

// SignIn opens a session with email and password. Failures carry no
// redirect.
func (a *AuthActions) SignIn(ctx context.Context, form SignInForm) ActionResult {
	if err := validateForm(&form); err != nil {
		a.logger.Debug("sign in validation failed", "error", err)
		return failure(ErrInvalidFields, "")
	}

	session, err := a.provider.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		a.logger.Info("sign in failed", "email", form.Email, "error", err)
		a.emit(ctx, ActivityEventSignInFailure, "", form.Email, false, nil)
		return failure(err, "")
	}

	var uid string
	if session != nil {
		uid = userID(session.User)
	}
	a.emit(ctx, ActivityEventSignInSuccess, uid, form.Email, true, nil)

	res := success(MsgSignInSuccess, PathPricings)
	res.Session = session
	return res
}

// ResendConfirmation sends the sign up confirmation email again. Requests
// for the same email inside the cooldown period are rejected. A failed
// send releases the cooldown.
func (a *AuthActions) ResendConfirmation(ctx context.Context, form EmailForm) ActionResult {
	if err := validateForm(&form); err != nil {
		return failure(ErrInvalidFields, "")
	}

	key := resendCooldownPrefix + form.Email
	acquired := false
	if a.cooldown != nil {
		allowed, retryAfter, err := a.cooldown.Acquire(ctx, key)
		switch {
		case err != nil:
			a.logger.Warn("resend cooldown store failed, allowing request", "email", form.Email, "error", err)
		case allowed:
			acquired = true
		case !allowed:
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			richErr := ErrResendCooldown.Clone()
			richErr.Message = fmt.Sprintf(MsgResendCooldownFmt, seconds)
			richErr = richErr.WithMetadata(map[string]any{
				"retry_after": seconds,
			})
			return failure(richErr, "")
		}
	}

	if err := a.provider.Resend(ctx, OTPTypeSignup, form.Email, a.appURL+PathAuthConfirm); err != nil {
		a.logger.Error("resend confirmation failed", "email", form.Email, "error", err)
		// the cooldown only counts emails that were actually sent
		if acquired {
			if rerr := a.cooldown.Reset(ctx, key); rerr != nil {
				a.logger.Warn("resend cooldown reset failed", "email", form.Email, "error", rerr)
			}
		}
		a.emit(ctx, ActivityEventConfirmationResend, "", form.Email, false, nil)
		return failure(err, "")
	}

	a.emit(ctx, ActivityEventConfirmationResend, "", form.Email, true, nil)

	return success(MsgConfirmationResent, "")
}

// ForgotPassword sends a recovery email that links back to the reset
// password page on the origin of the request.
func (a *AuthActions) ForgotPassword(ctx context.Context, form EmailForm, origin RequestOrigin) ActionResult {
	if err := validateForm(&form); err != nil {
		return failure(ErrInvalidFields, "")
	}

	redirectTo := origin.URL(PathResetPassword)
	if strings.TrimSpace(origin.Host) == "" {
		redirectTo = a.appURL + PathResetPassword
	}

	if err := a.provider.ResetPasswordForEmail(ctx, form.Email, redirectTo); err != nil {
		a.logger.Error("password reset request failed", "email", form.Email, "error", err)
		a.emit(ctx, ActivityEventPasswordResetRequest, "", form.Email, false, nil)
		return failure(err, "")
	}

	a.emit(ctx, ActivityEventPasswordResetRequest, "", form.Email, true, map[string]any{
		"redirect_to": redirectTo,
	})

	return success(MsgPasswordResetSent, "")
}

// UpdatePassword sets a new password for the session user
func (a *AuthActions) UpdatePassword(ctx context.Context, accessToken string, form UpdatePasswordForm) ActionResult {
	if err := validateForm(&form); err != nil {
		return failure(ErrInvalidFields, "")
	}

	if !form.Matches() {
		return failure(ErrPasswordMismatch, "")
	}

	if strings.TrimSpace(accessToken) == "" {
		return failure(ErrNoSession, PathLogin)
	}

	user, err := a.provider.UpdateUser(ctx, accessToken, UserAttributes{Password: form.Password})
	if err != nil {
		a.logger.Error("password update failed", "error", err)
		a.emit(ctx, ActivityEventPasswordUpdated, "", "", false, nil)
		return failure(err, "")
	}

	a.emit(ctx, ActivityEventPasswordUpdated, userID(user), userEmail(user), true, nil)

	return success(MsgPasswordUpdated, PathPricings)
}

// SignOut terminates the backend session
func (a *AuthActions) SignOut(ctx context.Context, accessToken string) ActionResult {
	if strings.TrimSpace(accessToken) != "" {
		if err := a.provider.SignOut(ctx, accessToken); err != nil {
			a.logger.Error("sign out failed", "error", err)
			return failure(err, "")
		}
	}

	a.emit(ctx, ActivityEventSignOut, "", "", true, nil)

	return success(MsgSignedOut, PathLogin)
}

// CurrentUser returns the session user for the token or nil. Backend
// errors are logged and treated as no session.
func (a *AuthActions) CurrentUser(ctx context.Context, accessToken string) *SessionUser {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}

	user, err := a.provider.GetUser(ctx, accessToken)
	if err != nil {
		a.logger.Debug("current user lookup failed", "error", err)
		return nil
	}
	return user
}

// VerifyEmailLink handles the link sent by email. Sign up links confirm the
// account and land on next (or the dashboard). Recovery links open a
// session on the reset password page.
func (a *AuthActions) VerifyEmailLink(ctx context.Context, tokenHash string, otpType OTPType, next string) ActionResult {
	tokenHash = strings.TrimSpace(tokenHash)
	otpType = strings.TrimSpace(otpType)
	if tokenHash == "" || otpType == "" {
		return failure(goerrors.New(MsgInvalidLink, goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest), PathLogin)
	}

	session, err := a.provider.VerifyOTP(ctx, otpType, tokenHash)
	if err != nil {
		a.logger.Info("email link verification failed", "type", otpType, "error", err)
		return failure(err, PathLogin)
	}

	redirect := safeRedirect(next, PathDashboard)
	message := MsgEmailConfirmed
	if otpType == OTPTypeRecovery {
		redirect = PathResetPassword
		message = ""
	}

	var user *SessionUser
	if session != nil {
		user = session.User
	}
	a.emit(ctx, ActivityEventEmailConfirmed, userID(user), userEmail(user), true, map[string]any{
		"type": otpType,
	})

	res := success(message, redirect)
	res.Session = session
	return res
}

func (a *AuthActions) emit(ctx context.Context, eventType ActivityEventType, uid, email string, ok bool, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     uid,
		Email:      email,
		Success:    ok,
		Metadata:   metadata,
		OccurredAt: a.now(),
	}
	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink failed", "event", string(eventType), "error", err)
	}
}

func validateForm(f Form) error {
	f.Normalize()
	return f.Validate()
}

// safeRedirect only accepts local absolute paths
func safeRedirect(next, def string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return def
	}
	return next
}

func userID(u *SessionUser) string {
	if u == nil {
		return ""
	}
	return u.ID
}

func userEmail(u *SessionUser) string {
	if u == nil {
		return ""
	}
	return u.Email
}
