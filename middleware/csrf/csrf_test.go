package csrf

import (
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newMockContextWithBase(method string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Method").Return(method)
	ctx.On("Locals", DefaultContextKey, mock.Anything).Return(nil)
	ctx.On("Locals", DefaultFieldContextKey, mock.Anything).Return(nil)
	return ctx
}

func newTestHandler(sessionKey string, clock *testClock, captured *error) router.HandlerFunc {
	cfg := Config{
		SecureKey:  newTestSecureKey(),
		SessionKey: func(router.Context) string { return sessionKey },
		Now:        clock.Now,
		ErrorHandler: func(ctx router.Context, err error) error {
			*captured = err
			return err
		},
	}
	return New(cfg)(func(ctx router.Context) error { return ctx.Next() })
}

func mintToken(t *testing.T, handler router.HandlerFunc) string {
	t.Helper()
	getCtx := newMockContextWithBase("GET")
	require.NoError(t, handler(getCtx))
	require.True(t, getCtx.NextCalled)

	token, ok := getCtx.LocalsMock[DefaultContextKey].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	field, ok := getCtx.LocalsMock[DefaultFieldContextKey].(string)
	require.True(t, ok)
	assert.Contains(t, field, `name="_token"`)
	assert.Contains(t, field, `value="`+token+`"`)
	return token
}

func TestStatelessTokenValidationSuccess(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	var captured error
	handler := newTestHandler("session-a", clock, &captured)

	token := mintToken(t, handler)

	postCtx := newMockContextWithBase("POST")
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)

	require.NoError(t, handler(postCtx))
	assert.True(t, postCtx.NextCalled)
	assert.NoError(t, captured)
}

func TestStatelessTokenFromHeader(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	var captured error
	handler := newTestHandler("session-a", clock, &captured)

	token := mintToken(t, handler)

	postCtx := newMockContextWithBase("POST")
	postCtx.On("FormValue", DefaultFormFieldName).Return("")
	postCtx.HeadersM[DefaultHeaderName] = token

	require.NoError(t, handler(postCtx))
	assert.True(t, postCtx.NextCalled)
}

func TestStatelessTokenValidationFailures(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	var captured error
	token := mintToken(t, newTestHandler("session-a", clock, &captured))

	tests := []struct {
		name       string
		sessionKey string
		token      string
		advance    time.Duration
		want       *errors.Error
	}{
		{name: "missing", sessionKey: "session-a", token: "", want: ErrTokenMissing},
		{name: "tampered", sessionKey: "session-a", token: "tampered", want: ErrTokenMismatch},
		{name: "other session", sessionKey: "session-b", token: token, want: ErrTokenMismatch},
		{name: "expired", sessionKey: "session-a", token: token, advance: 13 * time.Hour, want: ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &testClock{now: clock.now.Add(tt.advance)}
			var captured error
			handler := newTestHandler(tt.sessionKey, c, &captured)

			postCtx := newMockContextWithBase("POST")
			postCtx.On("FormValue", DefaultFormFieldName).Return(tt.token)

			err := handler(postCtx)
			require.Error(t, err)
			assert.ErrorIs(t, captured, tt.want)
			assert.False(t, postCtx.NextCalled)
		})
	}
}

func TestSkip(t *testing.T) {
	handler := New(Config{
		SecureKey: newTestSecureKey(),
		Skip:      func(router.Context) bool { return true },
	})(func(ctx router.Context) error { return ctx.Next() })

	ctx := router.NewMockContext()
	require.NoError(t, handler(ctx))
	assert.True(t, ctx.NextCalled)
}

func TestShortSecureKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		New(Config{SecureKey: []byte("short")})
	})
}

func TestHiddenField(t *testing.T) {
	assert.Equal(t, `<input type="hidden" name="_token" value="a&lt;b">`, HiddenField("_token", "a<b"))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrTokenMissing.Code)
	assert.Equal(t, http.StatusForbidden, ErrTokenMismatch.Code)
	assert.Equal(t, http.StatusForbidden, ErrTokenExpired.Code)
}
