package local

import (
	"context"
	"time"

	"github.com/goliatone/go-dashboard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// MaxLoginAttempts is the maximun number of failed attempts an account
// gets in a CoolDownPeriod
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = 24 * time.Hour

type SignInMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(session *dashboard.AuthSession)
}

func (e SignInMessage) Type() string { return "account.sign_in" }

type SignInHandler struct {
	repo   RepositoryManager
	tokens *TokenService
	now    func() time.Time
}

func (h *SignInHandler) Execute(ctx context.Context, event SignInMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign in",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignInHandler) execute(ctx context.Context, event SignInMessage) error {
	var account *Account
	var rejected error

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	now := h.now().UTC()

	// failed attempts are tracked in a committed transaction, the rejection
	// is returned after it
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				rejected = ErrInvalidCredentials
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during sign in")
		}

		if account.LoginAttemptAt != nil && now.Sub(*account.LoginAttemptAt) > CoolDownPeriod {
			account.LoginAttempts = 0
		}

		//if we have too many attempts in the given window, cool off!
		if account.LoginAttempts >= MaxLoginAttempts {
			rejected = ErrTooManyLoginAttempts
			return nil
		}

		if err := ComparePasswordAndHash(event.Password, account.PasswordHash); err != nil {
			if err2 := h.repo.Accounts().TrackAttemptedLoginTx(ctx, tx, account, now); err2 != nil {
				return goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
			}
			rejected = ErrInvalidCredentials
			return nil
		}

		if !account.Confirmed() {
			rejected = ErrEmailNotConfirmed
			return nil
		}

		return h.repo.Accounts().TrackSuccessfulLoginTx(ctx, tx, account, now)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "sign in transaction failed")
	}

	if rejected != nil {
		return rejected
	}

	session, err := h.tokens.Generate(account, "password")
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(session)
	}
	return nil
}
