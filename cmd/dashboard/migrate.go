package main

import (
	"fmt"

	"github.com/goliatone/go-dashboard/config"
	"github.com/goliatone/go-dashboard/provider/local"
	"github.com/goliatone/go-errors"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the local backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newMigrationApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			db, err := app.openDB()
			if err != nil {
				return err
			}

			group, err := local.Migrate(cmd.Context(), db, app.GetLogger("migrate"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated: %s\n", group)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newMigrationApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			db, err := app.openDB()
			if err != nil {
				return err
			}

			group, err := local.Rollback(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back: %s\n", group)
			return nil
		},
	})

	return cmd
}

func newMigrationApp(opts *rootOptions) (*App, error) {
	if opts.cfg.Backend != config.BackendLocal {
		return nil, errors.New("migrations only apply to the local backend", errors.CategoryBadInput).
			WithMetadata(map[string]any{"backend": opts.cfg.Backend})
	}
	return &App{
		cfg:    opts.cfg,
		logger: newLogger(opts.cfg),
	}, nil
}
