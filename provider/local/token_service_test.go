package local

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount() *Account {
	confirmed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &Account{
		ID:               uuid.New(),
		Email:            "jane@example.com",
		Role:             AuthenticatedRole,
		EmailConfirmedAt: &confirmed,
	}
}

func TestTokenService_GenerateAndValidate(t *testing.T) {
	clock := newTestClock()
	ts := NewTokenService([]byte("test-signing-key"), 2, "go-dashboard", jwt.ClaimStrings{"authenticated"}, nil)
	ts.now = clock.Now

	account := newTestAccount()
	account.Metadata.FullName = "Jane Doe"

	session, err := ts.Generate(account, "password")
	require.NoError(t, err)
	assert.Equal(t, 7200, session.ExpiresIn)
	assert.Equal(t, clock.Now().Add(2*time.Hour).Unix(), session.ExpiresAt)
	assert.Equal(t, account.ID.String(), session.User.ID)

	claims, err := ts.Validate(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "password", claims.SessionType)
	assert.Equal(t, "Jane Doe", claims.UserMetadata.FullName)

	clock.Advance(3 * time.Hour)
	_, err = ts.Validate(session.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_DefaultExpiration(t *testing.T) {
	ts := NewTokenService([]byte("key"), 0, "", nil, nil)
	session, err := ts.Generate(newTestAccount(), "password")
	require.NoError(t, err)
	assert.Equal(t, 24*3600, session.ExpiresIn)
}

func TestTokenService_Validate_Rejects(t *testing.T) {
	clock := newTestClock()
	issuer := NewTokenService([]byte("test-signing-key"), 1, "go-dashboard", jwt.ClaimStrings{"authenticated"}, nil)
	issuer.now = clock.Now

	session, err := issuer.Generate(newTestAccount(), "password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *TokenService
		token    string
	}{
		{
			name:     "wrong key",
			verifier: NewTokenService([]byte("other-key"), 1, "go-dashboard", jwt.ClaimStrings{"authenticated"}, nil),
			token:    session.AccessToken,
		},
		{
			name:     "wrong issuer",
			verifier: NewTokenService([]byte("test-signing-key"), 1, "someone-else", jwt.ClaimStrings{"authenticated"}, nil),
			token:    session.AccessToken,
		},
		{
			name:     "wrong audience",
			verifier: NewTokenService([]byte("test-signing-key"), 1, "go-dashboard", jwt.ClaimStrings{"service_role"}, nil),
			token:    session.AccessToken,
		},
		{
			name:     "garbage",
			verifier: issuer,
			token:    "not.a.token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verifier.now = clock.Now
			_, err := tt.verifier.Validate(tt.token)
			requireTextCode(t, err, TextCodeTokenMalformed)
		})
	}
}
