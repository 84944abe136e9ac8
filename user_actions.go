package dashboard

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// UserActions wraps the row queries against the users table
type UserActions struct {
	store  UserStore
	logger Logger
	now    func() time.Time
}

// UserActionsOption configures UserActions
type UserActionsOption func(*UserActions)

// WithUsersLogger sets the logger
func WithUsersLogger(logger Logger) UserActionsOption {
	return func(u *UserActions) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithUsersClock overrides the time source used by the statistics window
func WithUsersClock(now func() time.Time) UserActionsOption {
	return func(u *UserActions) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUserActions creates the user data action layer
func NewUserActions(store UserStore, opts ...UserActionsOption) *UserActions {
	u := &UserActions{
		store:  store,
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// ListUsers returns every user, newest first
func (u *UserActions) ListUsers(ctx context.Context) ([]*UserRecord, error) {
	users, err := u.store.ListUsers(ctx, DefaultUserQuery())
	if err != nil {
		u.logger.Error("list users failed", "error", err)
		return nil, wrapFetch(err, ErrFetchUsers, nil)
	}
	return users, nil
}

// ListUsersTable returns every user sorted for the users table. Unknown
// sort columns keep the newest first order.
func (u *UserActions) ListUsersTable(ctx context.Context, sortBy string, dir SortDirection) ([]*UserRecord, error) {
	users, err := u.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	SortUsers(users, sortBy, dir)
	return users, nil
}

// GetUserByID returns one user. A missing row is ErrUserNotFound, a failed
// query is ErrFetchUser.
func (u *UserActions) GetUserByID(ctx context.Context, id string) (*UserRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}

	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		u.logger.Error("get user failed", "id", id, "error", err)
		return nil, wrapFetch(err, ErrFetchUser, map[string]any{"id": id})
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// GetUserStats runs the count queries concurrently and derives the growth
// rate. Any failed count fails the whole call.
func (u *UserActions) GetUserStats(ctx context.Context) (UserStats, error) {
	window := NewStatsWindow(u.now())

	var total, previous, recent, active, pending int

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, f UserFilter) {
		g.Go(func() error {
			n, err := u.store.CountUsers(gctx, f)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&total, UserFilter{})
	count(&previous, UserFilter{CreatedBefore: &window.PreviousCutoff})
	count(&recent, UserFilter{CreatedSince: &window.MonthStart})
	count(&active, UserFilter{Status: StatusTrue})
	count(&pending, UserFilter{Status: StatusNull})

	if err := g.Wait(); err != nil {
		u.logger.Error("user stats failed", "error", err)
		return UserStats{}, wrapFetch(err, ErrFetchStats, nil)
	}

	return UserStats{
		TotalUsers:           total,
		NewUsers:             recent,
		ActiveUsers:          active,
		PendingVerifications: pending,
		GrowthRate:           GrowthRate(total, previous),
	}, nil
}
