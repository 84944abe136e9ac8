package local

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	Tokens() repository.Repository[*OneTimeToken]
	Profiles() *Profiles
}

func NewTokensRepository(db *bun.DB) repository.Repository[*OneTimeToken] {
	handlers := repository.ModelHandlers[*OneTimeToken]{
		NewRecord: func() *OneTimeToken {
			return &OneTimeToken{}
		},
		GetID: func(record *OneTimeToken) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *OneTimeToken, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "token_hash"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
	tokens   repository.Repository[*OneTimeToken]
	profiles *Profiles
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
		tokens:   NewTokensRepository(db),
		profiles: NewProfiles(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.tokens == nil {
		return errors.New("repository tokens should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) Tokens() repository.Repository[*OneTimeToken] {
	return m.tokens
}

func (m mngr) Profiles() *Profiles {
	return m.profiles
}
