package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmailLink(t *testing.T) {
	tests := []struct {
		name       string
		redirectTo string
		want       string
	}{
		{
			name:       "confirm endpoint",
			redirectTo: "https://app.example.com/auth/confirm",
			want:       "https://app.example.com/auth/confirm?token_hash=abc&type=signup",
		},
		{
			name:       "other path becomes next",
			redirectTo: "https://app.example.com/reset-password",
			want:       "https://app.example.com/auth/confirm?next=%2Freset-password&token_hash=abc&type=signup",
		},
		{
			name:       "empty uses app url",
			redirectTo: "",
			want:       "http://localhost:3000/auth/confirm?token_hash=abc&type=signup",
		},
		{
			name:       "relative uses app url",
			redirectTo: "/dashboard",
			want:       "http://localhost:3000/auth/confirm?token_hash=abc&type=signup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := emailLink(tt.redirectTo, "http://localhost:3000", "signup", "abc")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotifierFunc(t *testing.T) {
	var got Notification
	n := NotifierFunc(func(_ context.Context, msg Notification) error {
		got = msg
		return nil
	})

	want := Notification{Type: "recovery", Email: "jane@example.com", Link: "http://x", ExpiresAt: time.Now()}
	assert.NoError(t, n.Notify(context.Background(), want))
	assert.Equal(t, want, got)
}

func TestLoggerNotifier(t *testing.T) {
	n := NewLoggerNotifier(nil)
	assert.NoError(t, n.Notify(context.Background(), Notification{Type: "signup"}))
}
