package main

import (
	"fmt"

	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			users := dashboard.NewUserActions(app.store,
				dashboard.WithUsersLogger(app.GetLogger("users:actions")),
			)

			stats, err := users.GetUserStats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(stats))
			return nil
		},
	}
}
