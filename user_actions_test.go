package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestUsers(store UserStore, opts ...UserActionsOption) *UserActions {
	opts = append([]UserActionsOption{WithUsersLogger(nopLogger{})}, opts...)
	return NewUserActions(store, opts...)
}

func TestUserActions_ListUsersTable(t *testing.T) {
	store := new(mockStore)
	store.On("ListUsers", mock.Anything, DefaultUserQuery()).Return([]*UserRecord{
		{ID: "1", FullName: strPtr("bob")},
		{ID: "2", FullName: strPtr("Alice")},
		{ID: "3"},
	}, nil)

	users, err := newTestUsers(store).ListUsersTable(context.Background(), SortByName, SortAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "3"}, recordIDs(users))
}

func TestUserActions_ListUsers_Error(t *testing.T) {
	store := new(mockStore)
	store.On("ListUsers", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := newTestUsers(store).ListUsers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "Failed to fetch users", BackendMessage(err))
}

func TestUserActions_GetUserByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "u-1").Return(&UserRecord{ID: "u-1"}, nil)

		user, err := newTestUsers(store).GetUserByID(ctx, " u-1 ")
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
	})

	t.Run("not found", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "missing").Return(nil, ErrUserNotFound)

		_, err := newTestUsers(store).GetUserByID(ctx, "missing")
		assert.True(t, IsUserNotFound(err))
	})

	t.Run("nil row", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "ghost").Return(nil, nil)

		_, err := newTestUsers(store).GetUserByID(ctx, "ghost")
		assert.True(t, IsUserNotFound(err))
	})

	t.Run("empty id", func(t *testing.T) {
		store := new(mockStore)
		_, err := newTestUsers(store).GetUserByID(ctx, "  ")
		assert.True(t, IsUserNotFound(err))
		store.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("backend failure", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "u-1").Return(nil, assert.AnError)

		_, err := newTestUsers(store).GetUserByID(ctx, "u-1")
		require.Error(t, err)
		assert.False(t, IsUserNotFound(err))
		assert.Equal(t, "Failed to fetch user", BackendMessage(err))
	})
}

func TestUserActions_GetUserStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	window := NewStatsWindow(now)

	store := new(mockStore)
	store.On("CountUsers", mock.Anything, UserFilter{}).Return(120, nil)
	store.On("CountUsers", mock.Anything, UserFilter{CreatedBefore: &window.PreviousCutoff}).Return(100, nil)
	store.On("CountUsers", mock.Anything, UserFilter{CreatedSince: &window.MonthStart}).Return(12, nil)
	store.On("CountUsers", mock.Anything, UserFilter{Status: StatusTrue}).Return(80, nil)
	store.On("CountUsers", mock.Anything, UserFilter{Status: StatusNull}).Return(30, nil)

	stats, err := newTestUsers(store, WithUsersClock(func() time.Time { return now })).GetUserStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, UserStats{
		TotalUsers:           120,
		NewUsers:             12,
		ActiveUsers:          80,
		PendingVerifications: 30,
		GrowthRate:           20.0,
	}, stats)
	assert.Equal(t, 25, stats.PendingPercent())
	assert.Equal(t, 67, stats.ActivePercent())
	store.AssertNumberOfCalls(t, "CountUsers", 5)
}

func TestUserActions_GetUserStats_AnyCountFails(t *testing.T) {
	store := new(mockStore)
	store.On("CountUsers", mock.Anything, UserFilter{Status: StatusNull}).Return(0, assert.AnError)
	store.On("CountUsers", mock.Anything, mock.Anything).Return(10, nil)

	_, err := newTestUsers(store).GetUserStats(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch user statistics", BackendMessage(err))
}

func recordIDs(users []*UserRecord) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}
