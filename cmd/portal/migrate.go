package main

import (
	"github.com/spf13/cobra"

	"reportPortal/datasource"
	"reportPortal/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or drop the portal tables (postgres only)",
	}
	run := func(f func(a *app, dbURL string) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			u, err := a.dataSourceURL()
			if err != nil {
				return err
			}
			dbURL, err := datasource.PostgresURL(*u, a.cfg.DB.Password)
			if err != nil {
				return err
			}
			return f(a, dbURL)
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE:  run(func(a *app, dbURL string) error { return migrations.Up(a.log, dbURL) }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the last migration",
			Args:  cobra.NoArgs,
			RunE:  run(func(a *app, dbURL string) error { return migrations.Down(a.log, dbURL) }),
		},
	)
	return cmd
}
