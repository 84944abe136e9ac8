package local

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/goliatone/go-dashboard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// AuthenticatedRole is the auth role of every account
	AuthenticatedRole = "authenticated"

	SignupTokenTTL   = 24 * time.Hour
	RecoveryTokenTTL = time.Hour
)

type SignUpMessage struct {
	Email      string                 `json:"email"`
	Password   string                 `json:"password"`
	Metadata   dashboard.UserMetadata `json:"metadata"`
	RedirectTo string                 `json:"redirect_to"`
	UseHashid  bool
	OnResponse func(account *Account, token *OneTimeToken)
}

func (e SignUpMessage) Type() string { return "account.sign_up" }

// SignUpHandler creates the account, its profile row and the signup
// confirmation token in one transaction.
type SignUpHandler struct {
	repo RepositoryManager
	now  func() time.Time
}

func (h *SignUpHandler) Execute(ctx context.Context, event SignUpMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign up",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignUpHandler) execute(ctx context.Context, event SignUpMessage) error {
	account := &Account{}
	var token *OneTimeToken

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	now := h.now().UTC()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err == nil && existing != nil {
			return ErrUserAlreadyExists
		}
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Email = strings.ToLower(strings.TrimSpace(event.Email))
		account.PasswordHash = hash
		account.Metadata = event.Metadata
		account.Role = AuthenticatedRole
		account.CreatedAt = now
		account.UpdatedAt = now
		if event.UseHashid {
			if id, err := hashid.NewUUID(account.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		profile := &dashboard.UserRecord{
			ID:        account.ID.String(),
			Role:      dashboard.RoleUser,
			CreatedAt: now,
		}
		if name := strings.TrimSpace(event.Metadata.FullName); name != "" {
			profile.FullName = &name
		}
		if err := h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user profile")
		}

		token, err = issueTokenTx(ctx, tx, h.repo, account, dashboard.OTPTypeSignup, event.RedirectTo, now)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "sign up transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account, token)
	}

	return nil
}

func issueTokenTx(ctx context.Context, tx bun.IDB, repo RepositoryManager, account *Account, otpType dashboard.OTPType, redirectTo string, now time.Time) (*OneTimeToken, error) {
	tokenHash, err := newTokenHash()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate email token")
	}

	ttl := SignupTokenTTL
	if otpType == dashboard.OTPTypeRecovery {
		ttl = RecoveryTokenTTL
	}

	token := &OneTimeToken{
		ID:         uuid.New(),
		AccountID:  account.ID,
		Type:       otpType,
		TokenHash:  tokenHash,
		RedirectTo: redirectTo,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	created, err := repo.Tokens().CreateTx(ctx, tx, token)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create email token")
	}
	return created, nil
}

func newTokenHash() (string, error) {
	buf := make([]byte, 28)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
