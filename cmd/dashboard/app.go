package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-dashboard/config"
	"github.com/goliatone/go-dashboard/cooldown"
	"github.com/goliatone/go-dashboard/provider/local"
	"github.com/goliatone/go-dashboard/provider/supabase"
	"github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
)

// App holds the wired backend components
type App struct {
	cfg      *config.Config
	logger   *glog.BaseLogger
	db       *bun.DB
	provider dashboard.AuthProvider
	store    dashboard.UserStore
	cooldown dashboard.Cooldown
	closers  []func()
}

func newLogger(cfg *config.Config) *glog.BaseLogger {
	pretty := cfg.Log.Pretty || cfg.IsDevelopment()
	lvl := strings.ToLower(cfg.Log.Level)
	verbose := lvl == "debug" || lvl == "trace"

	switch {
	case pretty && verbose:
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName(cfg.App.Name),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	case pretty:
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithName(cfg.App.Name),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	case verbose:
		return glog.NewLogger(
			glog.WithLevel(glog.Trace),
			glog.WithName(cfg.App.Name),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	default:
		return glog.NewLogger(
			glog.WithName(cfg.App.Name),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: newLogger(cfg),
	}

	var err error
	switch cfg.Backend {
	case config.BackendLocal:
		err = app.withLocalBackend(ctx)
	default:
		err = app.withSupabaseBackend()
	}
	if err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) withSupabaseBackend() error {
	scfg := supabase.Config{
		URL:        a.cfg.Supabase.URL,
		AnonKey:    a.cfg.Supabase.AnonKey,
		ServiceKey: a.cfg.Supabase.ServiceKey,
		Schema:     a.cfg.Supabase.Schema,
		JWTSecret:  a.cfg.Supabase.JWTSecret,
		JWKSURL:    a.cfg.Supabase.JWKSURL,
		Timeout:    a.cfg.Supabase.Timeout,
	}

	validator, err := supabase.NewTokenValidator(scfg)
	if err != nil {
		return err
	}

	clientOpts := []supabase.ClientOption{
		supabase.WithLogger(a.GetLogger("supabase")),
	}
	if validator != nil {
		clientOpts = append(clientOpts, supabase.WithTokenValidator(validator))
		a.closers = append(a.closers, validator.Close)
	}

	client, err := supabase.NewAuthClient(scfg, clientOpts...)
	if err != nil {
		return err
	}

	rows, err := supabase.NewRowStore(scfg, a.GetLogger("supabase:rows"))
	if err != nil {
		return err
	}

	a.provider = client
	a.store = rows
	return nil
}

func (a *App) withLocalBackend(ctx context.Context) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}

	if _, err := local.Migrate(ctx, db, a.GetLogger("migrate")); err != nil {
		return err
	}

	provider, err := local.NewProvider(db, local.Config{
		AppURL:          a.cfg.App.URL,
		SigningKey:      a.cfg.Auth.SigningKey,
		TokenExpiration: a.cfg.Auth.TokenExpiration,
		Issuer:          a.cfg.Auth.Issuer,
		Audience:        a.cfg.Auth.Audience,
	}, local.WithLogger(a.GetLogger("local")))
	if err != nil {
		return err
	}

	a.provider = provider
	a.store = provider.Users()
	return nil
}

func (a *App) openDB() (*bun.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := local.Open(local.DBConfig{
		Driver: a.cfg.Database.Driver,
		DSN:    a.cfg.Database.DSN,
		Debug:  a.cfg.Database.Debug,
	}, a.GetLogger("db"))
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			a.GetLogger("db").Error("close database", "error", err)
		}
	})
	return db, nil
}

// Cooldown returns the resend confirmation cooldown store
func (a *App) Cooldown(ctx context.Context) (dashboard.Cooldown, error) {
	if a.cooldown != nil {
		return a.cooldown, nil
	}

	period := a.cfg.Auth.ResendCooldown
	switch a.cfg.Cooldown.Store {
	case config.StoreRedis:
		client, err := cooldown.NewRedisClient(ctx, cooldown.RedisConfig{
			Addr:        a.cfg.Redis.Addr,
			User:        a.cfg.Redis.User,
			Password:    a.cfg.Redis.Password,
			DB:          a.cfg.Redis.DB,
			MaxRetries:  a.cfg.Redis.MaxRetries,
			DialTimeout: a.cfg.Redis.DialTimeout,
			Timeout:     a.cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			_ = client.Close()
		})
		a.cooldown = cooldown.NewRedis(client, period, "")
	default:
		a.cooldown = cooldown.NewMemory(period)
	}

	return a.cooldown, nil
}

// Close releases resources in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// WaitExitSignal blocks until the process is asked to stop
func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
