package main

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-dashboard/activitymap"
	"github.com/goliatone/go-dashboard/config"
	"github.com/goliatone/go-dashboard/middleware/csrf"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				opts.cfg.HTTP.Address = address
			}
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address, overrides http.address")

	return cmd
}

func serve(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := newApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.GetLogger("http")
	cfg := opts.cfg

	limiter, err := app.Cooldown(ctx)
	if err != nil {
		return err
	}

	activityLogger := app.GetLogger("auth:activity")
	activity := activitymap.Sink(func(_ context.Context, n activitymap.Normalized) error {
		activityLogger.Info("activity",
			"verb", n.Verb,
			"actor_id", n.ActorID,
			"object_id", n.ObjectID,
			"metadata", n.Metadata,
		)
		return nil
	}, activitymap.WithRedactedEmail(!cfg.IsDevelopment()))

	actions := dashboard.NewAuthActions(app.provider, cfg.App.URL,
		dashboard.WithCooldown(limiter),
		dashboard.WithActionsLogger(app.GetLogger("auth:actions")),
		dashboard.WithActivitySink(activity),
	)

	users := dashboard.NewUserActions(app.store,
		dashboard.WithUsersLogger(app.GetLogger("users:actions")),
	)

	engine, err := newViewEngine(cfg.IsDevelopment())
	if err != nil {
		return err
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:           cfg.App.Name,
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))
	if cfg.CSRF.Enabled {
		srv.Router().Use(newCSRF(cfg))
	}

	auther, err := dashboard.NewHTTPAuthenticator(actions, cfg)
	if err != nil {
		return err
	}
	auther.WithLogger(app.GetLogger("auth:http"))

	dashboard.RegisterDashboardRoutes(srv.Router(), func(c *dashboard.DashboardController) *dashboard.DashboardController {
		c.Debug = cfg.IsDevelopment()
		c.Actions = actions
		c.Users = users
		c.Auther = auther
		c.WithLogger(app.GetLogger("dashboard:ctrl"))
		return c
	})

	logger.Info("starting server", "address", cfg.HTTP.Address, "backend", cfg.Backend)
	go srv.Serve(cfg.HTTP.Address)

	sig := WaitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newViewEngine(reload bool) (*django.Engine, error) {
	views, err := fs.Sub(dashboard.GetViewsFS(), "views")
	if err != nil {
		return nil, err
	}

	engine := django.NewPathForwardingFileSystem(http.FS(views), "/", ".html")
	engine.AddFuncMap(dashboard.TemplateHelpers())
	engine.Reload(reload)

	return engine, nil
}

func newCSRF(cfg *config.Config) router.MiddlewareFunc {
	var key []byte
	if cfg.CSRF.Secret != "" {
		key = []byte(cfg.CSRF.Secret)
	} else if len(cfg.Auth.SigningKey) >= csrf.MinSecureKeyLength {
		key = []byte(cfg.Auth.SigningKey)
	}

	return csrf.New(csrf.Config{
		SecureKey:     key,
		SessionCookie: cfg.Auth.CookieName,
		Expiration:    cfg.CSRF.Expiration,
	})
}
