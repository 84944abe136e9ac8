package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-dashboard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Auth   string
	APIKey string
	Body   map[string]any
}

func newGoTrueServer(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var calls []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
			APIKey: r.Header.Get("apikey"),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		handler(w, rec)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestClient(t *testing.T, url string, opts ...ClientOption) *AuthClient {
	t.Helper()
	client, err := NewAuthClient(Config{URL: url, AnonKey: "anon-key", Timeout: time.Second}, opts...)
	require.NoError(t, err)
	return client
}

func TestNewAuthClient_RequiresURLAndKey(t *testing.T) {
	_, err := NewAuthClient(Config{AnonKey: "anon"})
	assert.Error(t, err)

	_, err = NewAuthClient(Config{URL: "https://project.supabase.co"})
	assert.Error(t, err)

	_, err = NewAuthClient(Config{URL: "project.supabase.co", AnonKey: "anon"})
	assert.Error(t, err)
}

func TestAuthClient_SignInWithPassword(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{
			"access_token": "at-123",
			"refresh_token": "rt-123",
			"token_type": "bearer",
			"expires_in": 3600,
			"expires_at": 1710072000,
			"user": {"id": "` + testUserID + `", "email": "jane@example.com", "user_metadata": {"full_name": "Jane Doe"}}
		}`))
	})

	client := newTestClient(t, server.URL)
	session, err := client.SignInWithPassword(context.Background(), "jane@example.com", "password1")
	require.NoError(t, err)

	assert.Equal(t, "at-123", session.AccessToken)
	assert.Equal(t, int64(1710072000), session.ExpiresAt)
	require.NotNil(t, session.User)
	assert.Equal(t, testUserID, session.User.ID)
	assert.Equal(t, "Jane Doe", session.User.DisplayName())

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/auth/v1/token", call.Path)
	assert.Equal(t, []string{"password"}, call.Query["grant_type"])
	assert.Equal(t, "anon-key", call.APIKey)
	assert.Equal(t, "Bearer anon-key", call.Auth)
	assert.Equal(t, "jane@example.com", call.Body["email"])
}

func TestAuthClient_SignInWithPassword_BackendMessage(t *testing.T) {
	server, _ := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	client := newTestClient(t, server.URL)
	_, err := client.SignInWithPassword(context.Background(), "jane@example.com", "wrong-password")
	require.Error(t, err)

	assert.Equal(t, "Invalid login credentials", dashboard.BackendMessage(err))

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, http.StatusBadRequest, richErr.Code)
	assert.Equal(t, "invalid_grant", richErr.TextCode)
	assert.Equal(t, goerrors.CategoryBadInput, richErr.Category)
}

func TestAuthClient_SignUp(t *testing.T) {
	t.Run("confirmation required returns the bare user", func(t *testing.T) {
		server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
			_, _ = w.Write([]byte(`{"id":"u-1","email":"a@b.com","user_metadata":{"full_name":"jane doe"}}`))
		})

		client := newTestClient(t, server.URL)
		user, err := client.SignUp(context.Background(), dashboard.SignUpRequest{
			Email:           "a@b.com",
			Password:        "password1",
			Metadata:        dashboard.UserMetadata{FullName: "jane doe"},
			EmailRedirectTo: "http://localhost:3000/auth/confirm",
		})
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)

		call := (*calls)[0]
		assert.Equal(t, "/auth/v1/signup", call.Path)
		assert.Equal(t, []string{"http://localhost:3000/auth/confirm"}, call.Query["redirect_to"])
		assert.Equal(t, map[string]any{"full_name": "jane doe"}, call.Body["data"])
	})

	t.Run("autoconfirm returns a session", func(t *testing.T) {
		server, _ := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
			_, _ = w.Write([]byte(`{"access_token":"at","user":{"id":"u-2","email":"a@b.com"}}`))
		})

		client := newTestClient(t, server.URL)
		user, err := client.SignUp(context.Background(), dashboard.SignUpRequest{Email: "a@b.com", Password: "password1"})
		require.NoError(t, err)
		assert.Equal(t, "u-2", user.ID)
	})

	t.Run("already registered", func(t *testing.T) {
		server, _ := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`))
		})

		client := newTestClient(t, server.URL)
		_, err := client.SignUp(context.Background(), dashboard.SignUpRequest{Email: "a@b.com", Password: "password1"})
		require.Error(t, err)
		assert.Equal(t, "User already registered", dashboard.BackendMessage(err))

		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, "user_already_exists", richErr.TextCode)
		assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
	})
}

func TestAuthClient_EmailFlows(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{}`))
	})
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	require.NoError(t, client.Resend(ctx, dashboard.OTPTypeSignup, "a@b.com", "http://app/auth/confirm"))
	require.NoError(t, client.ResetPasswordForEmail(ctx, "a@b.com", "http://app/reset-password"))

	require.Len(t, *calls, 2)
	assert.Equal(t, "/auth/v1/resend", (*calls)[0].Path)
	assert.Equal(t, "signup", (*calls)[0].Body["type"])
	assert.Equal(t, "a@b.com", (*calls)[0].Body["email"])

	assert.Equal(t, "/auth/v1/recover", (*calls)[1].Path)
	assert.Equal(t, []string{"http://app/reset-password"}, (*calls)[1].Query["redirect_to"])
}

func TestAuthClient_SessionCalls(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		switch r.Path {
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/auth/v1/verify":
			_, _ = w.Write([]byte(`{"access_token":"recovery-at","user":{"id":"u-1"}}`))
		default:
			_, _ = w.Write([]byte(`{"id":"` + testUserID + `","email":"a@b.com","role":"authenticated","user_metadata":{"full_name":"Jane"}}`))
		}
	})
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	user, err := client.GetUser(ctx, "user-token")
	require.NoError(t, err)
	assert.Equal(t, testUserID, user.ID)
	assert.Equal(t, "authenticated", user.Role)
	assert.Equal(t, "Jane", user.UserMetadata.FullName)
	assert.Equal(t, "Bearer user-token", (*calls)[0].Auth)
	assert.Equal(t, "anon-key", (*calls)[0].APIKey)

	_, err = client.UpdateUser(ctx, "user-token", dashboard.UserAttributes{Password: "new-password"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, (*calls)[1].Method)
	assert.Equal(t, "new-password", (*calls)[1].Body["password"])

	require.NoError(t, client.SignOut(ctx, "user-token"))
	assert.Equal(t, "/auth/v1/logout", (*calls)[2].Path)

	session, err := client.VerifyOTP(ctx, dashboard.OTPTypeRecovery, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "recovery-at", session.AccessToken)
	assert.Equal(t, "hash-1", (*calls)[3].Body["token_hash"])
	assert.Equal(t, "recovery", (*calls)[3].Body["type"])
}

func TestAuthClient_EmptyTokens(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, server.URL)
	ctx := context.Background()

	_, err := client.GetUser(ctx, "")
	assert.ErrorIs(t, err, dashboard.ErrNoSession)

	_, err = client.UpdateUser(ctx, " ", dashboard.UserAttributes{Password: "x"})
	assert.ErrorIs(t, err, dashboard.ErrNoSession)

	assert.NoError(t, client.SignOut(ctx, ""))
	assert.Empty(t, *calls)
}

func TestAuthClient_GetUser_LocalValidationRejects(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{"id":"u-1"}`))
	})

	validator, err := NewTokenValidator(Config{URL: server.URL, AnonKey: "anon", JWTSecret: "secret"})
	require.NoError(t, err)

	client := newTestClient(t, server.URL, WithTokenValidator(validator))
	_, err = client.GetUser(context.Background(), "not-a-jwt")
	require.Error(t, err)
	assert.Empty(t, *calls)
}

func TestAuthClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	_, err := client.SignInWithPassword(context.Background(), "a@b.com", "password1")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, TextCodeUnavailable, richErr.TextCode)
}

func TestAuthClient_GetUser_ExpiredSession(t *testing.T) {
	server, _ := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":401,"error_code":"bad_jwt","msg":"invalid JWT: token is expired"}`))
	})

	client := newTestClient(t, server.URL)
	_, err := client.GetUser(context.Background(), "expired-token")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
	assert.Equal(t, "bad_jwt", richErr.TextCode)
	assert.Equal(t, "invalid JWT: token is expired", dashboard.BackendMessage(err))
}

func TestAuthClient_SignInWithPassword_MissingCredentials(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{}`))
	})

	client := newTestClient(t, server.URL)
	_, err := client.SignInWithPassword(context.Background(), "a@b.com", "")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, goerrors.CategoryBadInput, richErr.Category)
	assert.Empty(t, *calls)
}

func TestAuthClient_CanceledContext(t *testing.T) {
	server, calls := newGoTrueServer(t, func(w http.ResponseWriter, r recordedRequest) {
		_, _ = w.Write([]byte(`{}`))
	})

	client := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SignInWithPassword(ctx, "a@b.com", "password1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *calls)
}
