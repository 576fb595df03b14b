package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reportPortal/anylize"
	"reportPortal/builders"
	"reportPortal/query"
	"reportPortal/schemas"
	"reportPortal/types"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		filter   string
		sortSpec string
		page     int
		pageSize int
		explain  bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print one page of the gapminder table as JSON lines",
		Example: `  portal query --filter "{life_exp} > 70 && {country} like 'United'" --sort population:desc
  portal query --filter "{population} >= 1e8" --explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, d, _, err := a.openDB(ctx, 10*time.Second)
			if err != nil {
				return err
			}
			defer db.Close()

			sort, err := types.ParseSortSpec(sortSpec)
			if err != nil {
				return err
			}
			if pageSize == 0 {
				pageSize = a.cfg.Query.DefaultPageSize
			}
			req := types.PageRequest{PageIndex: page, PageSize: pageSize}
			r := query.NewRunner(db, d, schemas.Gapminder,
				query.WithTimeout(a.cfg.Query.Timeout),
				query.WithLogger(a.log.Named("query")),
			)
			fs := r.ParseFilter(filter)
			out := cmd.OutOrStdout()

			if explain {
				q, args, err := builders.BuildSelect(types.QuerySpec{Filters: fs, Sort: sort, Page: req}, r.Table(), d)
				if err != nil {
					return err
				}
				plan, ms, err := anylize.ExplainAnalyze(ctx, db, d, q, args...)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, q)
				fmt.Fprint(out, plan)
				if ms > 0 {
					fmt.Fprintf(out, "execution: %.3f ms\n", ms)
				}
				return nil
			}

			rows, err := r.BuildAndExecute(ctx, fs, sort, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			for _, row := range rows {
				if err := enc.Encode(row); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "filter expression, clauses joined by ' && '")
	cmd.Flags().StringVar(&sortSpec, "sort", "", "sort keys, e.g. population:desc,country")
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page index")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (default query.default_page_size)")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the executed plan instead of rows")
	return cmd
}
