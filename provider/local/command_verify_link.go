package local

import (
	"context"
	"time"

	"github.com/goliatone/go-dashboard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailLinkMessage struct {
	LinkType   dashboard.OTPType `json:"type"`
	TokenHash  string            `json:"token_hash"`
	OnResponse func(session *dashboard.AuthSession)
}

func (e VerifyEmailLinkMessage) Type() string { return "account.verify_email_link" }

// VerifyEmailLinkHandler consumes an email link token. Signup tokens
// confirm the email and activate the profile, recovery tokens open a
// session that can change the password.
type VerifyEmailLinkHandler struct {
	repo   RepositoryManager
	tokens *TokenService
	now    func() time.Time
}

func (h *VerifyEmailLinkHandler) Execute(ctx context.Context, event VerifyEmailLinkMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while verifying email link",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailLinkHandler) execute(ctx context.Context, event VerifyEmailLinkMessage) error {
	var account *Account
	var token *OneTimeToken

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	now := h.now().UTC()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		token, err = h.repo.Tokens().GetByIdentifierTx(ctx, tx, event.TokenHash)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidLink
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve email link token")
		}

		if !linkTypeMatches(token.Type, event.LinkType) || !token.Usable(now) {
			return ErrInvalidLink.Clone().WithMetadata(map[string]any{
				"token_type": token.Type,
				"expired":    !now.Before(token.ExpiresAt),
				"consumed":   token.ConsumedAt != nil,
			})
		}

		res, err := tx.NewUpdate().
			Model((*OneTimeToken)(nil)).
			Set("consumed_at = ?", now).
			Where("id = ?", token.ID).
			Where("consumed_at IS NULL").
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not consume email link token")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrInvalidLink
		}

		if token.Type == dashboard.OTPTypeSignup {
			if err := h.repo.Accounts().ConfirmEmailTx(ctx, tx, token.AccountID, now); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not confirm email")
			}
			if err := h.repo.Profiles().SetStatusTx(ctx, tx, token.AccountID.String(), true); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not activate profile")
			}
		}

		account, err = h.repo.Accounts().GetAccountByIDTx(ctx, tx, token.AccountID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve account for email link")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify email link")
	}

	session, err := h.tokens.Generate(account, token.Type)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(session)
	}
	return nil
}

// linkTypeMatches accepts the generic email type for signup tokens
func linkTypeMatches(stored, requested dashboard.OTPType) bool {
	if stored == requested {
		return true
	}
	return stored == dashboard.OTPTypeSignup && requested == dashboard.OTPTypeEmail
}
