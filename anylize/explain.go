// Package anylize runs EXPLAIN ANALYZE for queries built by the builders package.
package anylize

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"reportPortal/builders"
)

type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ExplainAnalyze executes sqlStr under the dialect's EXPLAIN ANALYZE and returns the plan
// text. ms is the execution time reported by postgres and 0 for other dialects.
func ExplainAnalyze(ctx context.Context, db DBTX, d builders.Dialect, sqlStr string, args ...any) (plan string, ms float64, err error) {
	rows, err := db.QueryContext(ctx, d.ExplainPrefix()+sqlStr, args...)
	if err != nil {
		return "", 0, errors.Wrap(err, "explain")
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return "", 0, errors.WithStack(err)
	}
	var b strings.Builder
	for rows.Next() {
		// duckdb answers with (explain_key, explain_value); the plan is the last column
		cells := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", 0, errors.WithStack(err)
		}
		b.WriteString(cells[len(cells)-1].String)
		b.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return "", 0, errors.WithStack(err)
	}
	plan = b.String()
	if d.Name == builders.Postgres.Name {
		ms = parseExec(plan)
	}
	return plan, ms, nil
}

var execRe = regexp.MustCompile(`Execution Time:\s+([0-9.]+)\s+ms`)

func parseExec(plan string) float64 {
	m := execRe.FindStringSubmatch(plan)
	if len(m) != 2 {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return f
}
