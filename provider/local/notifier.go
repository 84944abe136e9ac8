package local

import (
	"context"
	"net/url"
	"time"

	"github.com/goliatone/go-dashboard"
)

// Notification is an email link that would be delivered to a user
type Notification struct {
	Type      dashboard.OTPType
	Email     string
	Link      string
	ExpiresAt time.Time
}

// Notifier delivers email links
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function into a Notifier
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LoggerNotifier writes email links to the log instead of sending mail
type LoggerNotifier struct {
	logger dashboard.Logger
}

func NewLoggerNotifier(logger dashboard.Logger) *LoggerNotifier {
	if logger == nil {
		logger = nopLogger{}
	}
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("email notification", "type", msg.Type, "to", msg.Email, "link", msg.Link, "expires_at", msg.ExpiresAt)
	return nil
}

// emailLink builds the confirmation link for token. When redirectTo is
// the confirm endpoint the token is appended to it, otherwise the link
// goes through the confirm endpoint of the same origin with redirectTo as
// the next path.
func emailLink(redirectTo, fallbackBase string, otpType dashboard.OTPType, tokenHash string) string {
	u, err := url.Parse(redirectTo)
	if err != nil || u.Host == "" {
		u, err = url.Parse(fallbackBase + dashboard.PathAuthConfirm)
		if err != nil {
			u = &url.URL{Path: dashboard.PathAuthConfirm}
		}
	}

	q := url.Values{}
	q.Set("token_hash", tokenHash)
	q.Set("type", otpType)
	if u.Path != dashboard.PathAuthConfirm {
		if u.Path != "" {
			q.Set("next", u.Path)
		}
		u.Path = dashboard.PathAuthConfirm
	}
	u.RawQuery = q.Encode()
	return u.String()
}
