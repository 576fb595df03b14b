package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reportPortal/schemas"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Check that the data source has every column the portal reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, d, u, err := a.openDB(ctx, 10*time.Second)
			if err != nil {
				return err
			}
			defer db.Close()

			schemaName := d.DefaultSchema
			if schemaName == "" {
				// mysql keeps tables in a schema named after the database
				schemaName = u.Database
			}
			want := []schemas.Table{schemas.Gapminder, schemas.Sales}
			names := make([]string, len(want))
			for i, t := range want {
				names[i] = t.Name
			}
			live, err := schemas.LoadSchema(ctx, db, d.Placeholder, schemaName, names)
			if err != nil {
				return err
			}
			var failed error
			for _, t := range want {
				if err := schemas.Verify(live, t); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", t.Name, err)
					failed = err
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d columns)\n", t.Name, len(live.Tables[t.Name].Columns))
			}
			return failed
		},
	}
}
