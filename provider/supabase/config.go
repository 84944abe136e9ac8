package supabase

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSchema   = "public"
	defaultTimeout  = 10 * time.Second
	defaultAudience = "authenticated"
)

// Config holds the project settings shared by the auth client, the row
// store and the token validator.
type Config struct {
	// URL is the project URL, e.g. "https://abc.supabase.co".
	URL string

	// AnonKey is the public API key sent with every request.
	AnonKey string

	// ServiceKey bypasses row level security for row queries made without
	// a session (optional).
	ServiceKey string

	// Schema used by row queries.
	// Default: "public".
	Schema string

	// JWTSecret validates HS256 access tokens locally (optional).
	JWTSecret string

	// JWKSURL validates asymmetric access tokens locally (optional).
	// Takes precedence over JWTSecret.
	JWKSURL string

	// Timeout for outbound HTTP calls.
	// Default: 10 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client (optional).
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.Schema == "" {
		c.Schema = defaultSchema
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

func (c Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("supabase: project url is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("supabase: invalid project url: %s", c.URL)
	}
	if c.AnonKey == "" {
		return fmt.Errorf("supabase: anon key is required")
	}
	return nil
}

func (c Config) authURL() string {
	return c.URL + "/auth/v1"
}

func (c Config) restURL() string {
	return c.URL + "/rest/v1"
}

// issuer is the value GoTrue writes in the iss claim
func (c Config) issuer() string {
	return c.authURL()
}
