package local

import (
	"context"
	"time"

	"github.com/goliatone/go-dashboard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SendEmailLinkMessage struct {
	LinkType   dashboard.OTPType `json:"type"`
	Email      string            `json:"email"`
	RedirectTo string            `json:"redirect_to"`
}

func (e SendEmailLinkMessage) Type() string { return "account.send_email_link" }

// SendEmailLinkHandler issues a confirmation or recovery token and
// notifies the account owner. Unknown emails succeed silently so the
// response does not reveal which addresses are registered.
type SendEmailLinkHandler struct {
	repo     RepositoryManager
	notifier Notifier
	appURL   string
	logger   dashboard.Logger
	now      func() time.Time
}

func (h *SendEmailLinkHandler) Execute(ctx context.Context, event SendEmailLinkMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while sending email link",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendEmailLinkHandler) execute(ctx context.Context, event SendEmailLinkMessage) error {
	var token *OneTimeToken
	var account *Account

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	now := h.now().UTC()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				h.logger.Debug("email link requested for unknown account", "type", event.LinkType)
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for email link")
		}

		if event.LinkType == dashboard.OTPTypeSignup && account.Confirmed() {
			h.logger.Debug("confirmation requested for confirmed account", "account_id", account.ID)
			return nil
		}

		token, err = issueTokenTx(ctx, tx, h.repo, account, event.LinkType, event.RedirectTo, now)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send email link")
	}

	if token == nil {
		return nil
	}

	return notify(ctx, h.notifier, h.appURL, account, token)
}

func notify(ctx context.Context, notifier Notifier, appURL string, account *Account, token *OneTimeToken) error {
	if notifier == nil {
		return nil
	}
	err := notifier.Notify(ctx, Notification{
		Type:      token.Type,
		Email:     account.Email,
		Link:      emailLink(token.RedirectTo, appURL, token.Type, token.TokenHash),
		ExpiresAt: token.ExpiresAt,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "Error sending email").
			WithMetadata(map[string]any{"type": token.Type})
	}
	return nil
}
