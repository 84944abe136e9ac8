package supabase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

const usersTable = "users"

// pgInvalidTextRepresentation is the Postgres code for a value that does
// not parse as the column type, e.g. a malformed uuid
const pgInvalidTextRepresentation = "22P02"

// RowStore implements dashboard.UserStore over PostgREST. Queries run with
// the access token found in the request context so row level security
// applies to the signed in user.
type RowStore struct {
	cfg    Config
	logger dashboard.Logger
}

// NewRowStore returns a row store for the project in cfg
func NewRowStore(cfg Config, logger dashboard.Logger) (*RowStore, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &RowStore{cfg: cfg, logger: logger}, nil
}

func (s *RowStore) client(ctx context.Context) (*postgrest.Client, error) {
	client := postgrest.NewClient(s.cfg.restURL(), s.cfg.Schema, map[string]string{
		"apikey": s.cfg.AnonKey,
	})
	if client.ClientError != nil {
		return nil, errors.Wrap(client.ClientError, errors.CategoryInternal, "unable to create row client")
	}

	token := s.cfg.AnonKey
	if s.cfg.ServiceKey != "" {
		token = s.cfg.ServiceKey
	}
	if at, ok := dashboard.AccessTokenFromContext(ctx); ok {
		token = at
	}
	return client.SetAuthToken(token), nil
}

func columns() string {
	return strings.Join(dashboard.UserColumns, ",")
}

// ListUsers returns all visible users in the requested order
func (s *RowStore) ListUsers(ctx context.Context, q dashboard.UserQuery) ([]*dashboard.UserRecord, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	orderBy := q.OrderBy
	if !slices.Contains(dashboard.UserColumns, orderBy) {
		orderBy = dashboard.DefaultUserQuery().OrderBy
	}

	// nulls sort the way Postgres does without an explicit NULLS clause
	ascending := q.Direction == dashboard.SortAsc
	order := &postgrest.OrderOpts{
		Ascending:  ascending,
		NullsFirst: !ascending,
	}

	users := make([]*dashboard.UserRecord, 0)
	_, err = client.From(usersTable).
		Select(columns(), "", false).
		Order(orderBy, order).
		ExecuteTo(&users)
	if err != nil {
		s.logger.Error("list users query failed", "error", err)
		return nil, rowError(err, "list users")
	}
	return users, nil
}

// GetUser returns the user with id, or dashboard.ErrUserNotFound
func (s *RowStore) GetUser(ctx context.Context, id string) (*dashboard.UserRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, userNotFound(id)
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]*dashboard.UserRecord, 0, 1)
	_, err = client.From(usersTable).
		Select(columns(), "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&users)
	if err != nil {
		if isPGCode(err, pgInvalidTextRepresentation) {
			return nil, userNotFound(id)
		}
		return nil, rowError(err, "get user").WithMetadata(map[string]any{"id": id})
	}

	if len(users) == 0 || users[0] == nil {
		return nil, userNotFound(id)
	}
	return users[0], nil
}

func userNotFound(id string) *errors.Error {
	return dashboard.ErrUserNotFound.Clone().WithMetadata(map[string]any{"id": id})
}

// CountUsers runs a count only query with f applied
func (s *RowStore) CountUsers(ctx context.Context, f dashboard.UserFilter) (int, error) {
	client, err := s.client(ctx)
	if err != nil {
		return 0, err
	}

	query := client.From(usersTable).Select("*", "exact", true)
	if f.CreatedBefore != nil {
		query = query.Lt("created_at", f.CreatedBefore.UTC().Format(time.RFC3339))
	}
	if f.CreatedSince != nil {
		query = query.Gte("created_at", f.CreatedSince.UTC().Format(time.RFC3339))
	}
	switch f.Status {
	case dashboard.StatusTrue:
		query = query.Eq("status", "true")
	case dashboard.StatusNull:
		query = query.Is("status", "null")
	}

	_, count, err := query.Execute()
	if err != nil {
		return 0, rowError(err, "count users")
	}
	return int(count), nil
}

// isPGCode matches the "(code) message" errors postgrest-go returns
func isPGCode(err error, code string) bool {
	return err != nil && strings.HasPrefix(err.Error(), "("+code+")")
}

func rowError(err error, op string) *errors.Error {
	return errors.Wrap(err, errors.CategoryOperation, err.Error()).
		WithTextCode(TextCodeAPIError).
		WithMetadata(map[string]any{"operation": op})
}
