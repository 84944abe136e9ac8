package local

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Accounts interface {
	repository.Repository[*Account]

	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetAccountByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account, at time.Time) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account, at time.Time) error
	ConfirmEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, at time.Time) error
}

type accounts struct {
	repository.Repository[*Account]
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
	}
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) GetAccountByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, account)
}

// TrackAttemptedLoginTx increments the failed login counter
func (a *accounts) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account, at time.Time) error {
	account.LoginAttempts++
	account.LoginAttemptAt = &at

	_, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("login_attempts = ?", account.LoginAttempts).
		Set("login_attempt_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", account.ID).
		Exec(ctx)
	return err
}

// TrackSuccessfulLoginTx resets the failed login counter. Zero values are
// set explicitly since a model update would skip them.
func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account, at time.Time) error {
	account.LoginAttempts = 0
	account.LoginAttemptAt = nil
	account.LastSignInAt = &at

	_, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("last_sign_in_at = ?", at).
		Set("login_attempts = 0").
		Set("login_attempt_at = NULL").
		Set("updated_at = ?", at).
		Where("id = ?", account.ID).
		Exec(ctx)
	return err
}

func (a *accounts) ConfirmEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("email_confirmed_at = COALESCE(email_confirmed_at, ?)", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, at time.Time) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("login_attempts = 0").
		Set("login_attempt_at = NULL").
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffected, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}
