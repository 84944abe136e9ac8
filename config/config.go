// Package config loads the dashboard settings from a YAML file and the
// environment.
package config

import (
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendLocal    = "local"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the root settings struct
type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Backend  string   `yaml:"backend" env:"DASHBOARD_BACKEND" env-default:"supabase"`
	Supabase Supabase `yaml:"supabase"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Cooldown Cooldown `yaml:"cooldown"`
	Redis    Redis    `yaml:"redis"`
	CSRF     CSRF     `yaml:"csrf"`
	Log      Log      `yaml:"log"`
}

type App struct {
	Name string `yaml:"name" env:"APP_NAME" env-default:"dashboard"`
	URL  string `yaml:"url" env:"APP_URL" env-default:"http://localhost:3000"`
	Env  string `yaml:"env" env:"ENV" env-default:"development"`
}

type HTTP struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
}

type Supabase struct {
	URL        string        `yaml:"url" env:"SUPABASE_URL"`
	AnonKey    string        `yaml:"anon_key" env:"SUPABASE_ANON_KEY"`
	ServiceKey string        `yaml:"service_key" env:"SUPABASE_SERVICE_ROLE_KEY"`
	Schema     string        `yaml:"schema" env:"SUPABASE_SCHEMA" env-default:"public"`
	JWTSecret  string        `yaml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
	JWKSURL    string        `yaml:"jwks_url" env:"SUPABASE_JWKS_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"SUPABASE_TIMEOUT" env-default:"10s"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"DATABASE_URL" env-default:"file:dashboard.db?cache=shared"`
	Debug  bool   `yaml:"debug" env:"DATABASE_DEBUG"`
}

type Auth struct {
	CookieName           string        `yaml:"cookie_name" env:"AUTH_COOKIE_NAME" env-default:"sb-access-token"`
	CookieSecure         bool          `yaml:"cookie_secure" env:"AUTH_COOKIE_SECURE"`
	TokenExpiration      int           `yaml:"token_expiration" env:"AUTH_TOKEN_EXPIRATION" env-default:"24"`
	SigningKey           string        `yaml:"signing_key" env:"AUTH_SIGNING_KEY"`
	Issuer               string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"go-dashboard"`
	Audience             string        `yaml:"audience" env:"AUTH_AUDIENCE" env-default:"authenticated"`
	AdminRoles           []string      `yaml:"admin_roles" env:"AUTH_ADMIN_ROLES" env-separator:","`
	RejectedRouteKey     string        `yaml:"rejected_route_key" env:"AUTH_REJECTED_ROUTE_KEY" env-default:"login_redirect"`
	RejectedRouteDefault string        `yaml:"rejected_route_default" env:"AUTH_REJECTED_ROUTE_DEFAULT" env-default:"/pricings"`
	ResendCooldown       time.Duration `yaml:"resend_cooldown" env:"AUTH_RESEND_COOLDOWN" env-default:"60s"`
}

type Cooldown struct {
	Store string `yaml:"store" env:"COOLDOWN_STORE" env-default:"memory"`
}

type Redis struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
}

type CSRF struct {
	Enabled    bool          `yaml:"enabled" env:"CSRF_ENABLED" env-default:"true"`
	Secret     string        `yaml:"secret" env:"CSRF_SECRET"`
	Expiration time.Duration `yaml:"expiration" env:"CSRF_EXPIRATION" env-default:"12h"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

// Load reads path when given, or CONFIG_PATH, and applies environment
// overrides. In development a .env file is loaded first when present.
func Load(path string) (*Config, error) {
	if os.Getenv("ENV") == "dev" || os.Getenv("ENV") == "development" {
		_ = godotenv.Load()
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "config file not found").
				WithMetadata(map[string]any{"path": path})
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "cannot read config").
				WithMetadata(map[string]any{"path": path})
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "cannot read config from environment")
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.App.URL = strings.TrimRight(c.App.URL, "/")
	c.Supabase.URL = strings.TrimRight(c.Supabase.URL, "/")
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	c.Cooldown.Store = strings.ToLower(c.Cooldown.Store)

	roles := c.Auth.AdminRoles[:0]
	for _, r := range c.Auth.AdminRoles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	c.Auth.AdminRoles = roles
}

// Validate rejects missing values for the selected backend
func (c Config) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Backend, validation.Required, validation.In(BackendSupabase, BackendLocal)),
			validation.Field(&c.App, validation.By(func(any) error {
				return validation.ValidateStruct(&c.App,
					validation.Field(&c.App.URL, validation.Required, is.URL),
				)
			})),
			validation.Field(&c.Supabase, validation.When(c.Backend == BackendSupabase, validation.By(func(any) error {
				return validation.ValidateStruct(&c.Supabase,
					validation.Field(&c.Supabase.URL, validation.Required, is.URL),
					validation.Field(&c.Supabase.AnonKey, validation.Required),
				)
			}))),
			validation.Field(&c.Database, validation.When(c.Backend == BackendLocal, validation.By(func(any) error {
				return validation.ValidateStruct(&c.Database,
					validation.Field(&c.Database.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
					validation.Field(&c.Database.DSN, validation.Required),
				)
			}))),
			validation.Field(&c.Auth, validation.By(func(any) error {
				return validation.ValidateStruct(&c.Auth,
					validation.Field(&c.Auth.CookieName, validation.Required),
					validation.Field(&c.Auth.SigningKey, validation.When(c.Backend == BackendLocal, validation.Required)),
					validation.Field(&c.Auth.ResendCooldown, validation.Min(time.Duration(0))),
				)
			})),
			validation.Field(&c.CSRF, validation.By(func(any) error {
				return validation.ValidateStruct(&c.CSRF,
					validation.Field(&c.CSRF.Secret, validation.When(c.CSRF.Secret != "", validation.Length(32, 0))),
				)
			})),
			validation.Field(&c.Cooldown, validation.By(func(any) error {
				return validation.ValidateStruct(&c.Cooldown,
					validation.Field(&c.Cooldown.Store, validation.In(StoreMemory, StoreRedis)),
				)
			})),
		)
	}, "Invalid configuration"); err != nil {
		return err
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.App.Env == "dev" || c.App.Env == "development"
}

func (c Config) GetAppURL() string { return c.App.URL }

func (c Config) GetCookieName() string { return c.Auth.CookieName }

func (c Config) GetCookieSecure() bool { return c.Auth.CookieSecure }

func (c Config) GetTokenExpiration() int { return c.Auth.TokenExpiration }

func (c Config) GetRejectedRouteKey() string { return c.Auth.RejectedRouteKey }

func (c Config) GetRejectedRouteDefault() string { return c.Auth.RejectedRouteDefault }

func (c Config) GetAdminRoles() []string { return c.Auth.AdminRoles }

func (c Config) GetResendCooldown() time.Duration { return c.Auth.ResendCooldown }
