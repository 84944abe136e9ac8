package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// mockProvider implements AuthProvider
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetUser(ctx context.Context, accessToken string) (*SessionUser, error) {
	args := m.Called(ctx, accessToken)
	user, _ := args.Get(0).(*SessionUser)
	return user, args.Error(1)
}

func (m *mockProvider) SignUp(ctx context.Context, req SignUpRequest) (*SessionUser, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*SessionUser)
	return user, args.Error(1)
}

func (m *mockProvider) SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*AuthSession)
	return session, args.Error(1)
}

func (m *mockProvider) Resend(ctx context.Context, otpType OTPType, email, redirectTo string) error {
	args := m.Called(ctx, otpType, email, redirectTo)
	return args.Error(0)
}

func (m *mockProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	args := m.Called(ctx, email, redirectTo)
	return args.Error(0)
}

func (m *mockProvider) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*SessionUser, error) {
	args := m.Called(ctx, accessToken, attrs)
	user, _ := args.Get(0).(*SessionUser)
	return user, args.Error(1)
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *mockProvider) VerifyOTP(ctx context.Context, otpType OTPType, tokenHash string) (*AuthSession, error) {
	args := m.Called(ctx, otpType, tokenHash)
	session, _ := args.Get(0).(*AuthSession)
	return session, args.Error(1)
}

// mockStore implements UserStore
type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListUsers(ctx context.Context, q UserQuery) ([]*UserRecord, error) {
	args := m.Called(ctx, q)
	users, _ := args.Get(0).([]*UserRecord)
	return users, args.Error(1)
}

func (m *mockStore) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*UserRecord)
	return user, args.Error(1)
}

func (m *mockStore) CountUsers(ctx context.Context, f UserFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

// windowCooldown allows one acquire per key per period
type windowCooldown struct {
	mu     sync.Mutex
	period time.Duration
	now    func() time.Time
	seen   map[string]time.Time
}

func newWindowCooldown(period time.Duration, now func() time.Time) *windowCooldown {
	return &windowCooldown{period: period, now: now, seen: map[string]time.Time{}}
}

func (c *windowCooldown) Acquire(_ context.Context, key string) (bool, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if last, ok := c.seen[key]; ok {
		if wait := c.period - now.Sub(last); wait > 0 {
			return false, wait, nil
		}
	}
	c.seen[key] = now
	return true, 0, nil
}

func (c *windowCooldown) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, key)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, e ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
