package main

import (
	"github.com/goliatone/go-dashboard/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "User management dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (defaults to $CONFIG_PATH)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newStatsCmd(opts),
	)

	return cmd
}
