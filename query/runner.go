// Package query turns table widget state into rows: it parses the filter expression,
// renders a paginated SELECT and reads it inside a read-only transaction.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"reportPortal/builders"
	"reportPortal/datasource"
	"reportPortal/filters"
	"reportPortal/metrics"
	"reportPortal/schemas"
	"reportPortal/types"
)

// QueryExecutionError is returned for any failure after the data source was asked for
// a connection: begin, execute, scan, commit or timeout.
type QueryExecutionError struct {
	Query string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// IsExecution reports whether err is or wraps a QueryExecutionError.
func IsExecution(err error) bool {
	var qe *QueryExecutionError
	return errors.As(err, &qe)
}

type Runner struct {
	db      *datasource.DB
	dialect builders.Dialect
	table   schemas.Table
	log     *zap.Logger
	timeout time.Duration
}

type Option func(*Runner)

// WithTimeout bounds each execution. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(r *Runner) { r.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.log = l } }

// NewRunner reads table through db. table is a fixed configuration, not user input.
func NewRunner(db *datasource.DB, d builders.Dialect, table schemas.Table, opts ...Option) *Runner {
	r := &Runner{db: db, dialect: d, table: table, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) Table() schemas.Table { return r.table }

// ParseFilter parses expr and logs every fragment that was dropped.
func (r *Runner) ParseFilter(expr string) []types.FilterClause {
	return filters.Parse(expr, filters.WithDropHook(func(frag string, reason error) {
		metrics.DroppedFragment()
		r.log.Debug("dropped filter fragment", zap.String("fragment", frag), zap.Error(reason))
	}))
}

// BuildAndExecute reads one page of rows matching filters in sort order.
func (r *Runner) BuildAndExecute(ctx context.Context, fs []types.FilterClause, sort types.SortSpec, page types.PageRequest) ([]types.RecordRow, error) {
	q, args, err := builders.BuildSelect(types.QuerySpec{Filters: fs, Sort: sort, Page: page}, r.table, r.dialect)
	if err != nil {
		return nil, err
	}
	var out []types.RecordRow
	err = r.read(ctx, "select", q, args, func(rows *sql.Rows) error {
		var err error
		out, err = MapRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of rows matching filters.
func (r *Runner) Count(ctx context.Context, fs []types.FilterClause) (int64, error) {
	q, args, err := builders.BuildCount(fs, r.table, r.dialect)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.read(ctx, "count", q, args, func(rows *sql.Rows) error {
		if !rows.Next() {
			return errors.New("count returned no rows")
		}
		return errors.WithStack(rows.Scan(&n))
	})
	return n, err
}

func (r *Runner) read(ctx context.Context, op, q string, args []any, scan func(*sql.Rows) error) error {
	start := time.Now()
	err := Read(ctx, r.db, r.dialect, r.timeout, q, args, scan)
	metrics.ObserveQuery(op, time.Since(start), err)
	if err != nil {
		r.log.Warn("query failed", zap.String("op", op), zap.String("sql", q), zap.Error(err))
		return err
	}
	r.log.Debug("query done", zap.String("op", op), zap.String("sql", q), zap.Int("args", len(args)), zap.Duration("took", time.Since(start)))
	return nil
}

// Read runs q in a read-only transaction and hands the open rows to scan. Every
// failure is a QueryExecutionError; rows and transaction are released on every path.
func Read(ctx context.Context, db *datasource.DB, d builders.Dialect, timeout time.Duration, q string, args []any, scan func(*sql.Rows) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := datasource.WithReadOnlyTx(ctx, db, d, func(ctx context.Context, tx *datasource.Tx) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return errors.WithStack(err)
		}
		defer rows.Close()
		if err := scan(rows); err != nil {
			return err
		}
		return errors.WithStack(rows.Err())
	})
	if err != nil {
		return &QueryExecutionError{Query: q, Err: err}
	}
	return nil
}

// MapRows converts every remaining row into a RecordRow keeping the column order.
func MapRows(rows *sql.Rows) ([]types.RecordRow, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	numeric := make([]bool, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			switch strings.ToUpper(ct.DatabaseTypeName()) {
			case "NUMERIC", "DECIMAL":
				numeric[i] = true
			}
		}
	}
	out := []types.RecordRow{}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.WithStack(err)
		}
		rec := types.RecordRow{Columns: append([]string(nil), cols...), Values: make([]types.Value, len(cols))}
		for i, v := range raw {
			rec.Values[i] = toValue(v, numeric[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func toValue(v any, numeric bool) types.Value {
	if f, ok := types.AsFloat(v); ok {
		return types.Number(f)
	}
	switch x := v.(type) {
	case nil:
		return types.Null()
	case []byte:
		return textValue(string(x), numeric)
	case string:
		return textValue(x, numeric)
	case time.Time:
		return types.String(x.Format(time.RFC3339))
	case bool:
		return types.String(strconv.FormatBool(x))
	default:
		return types.String(fmt.Sprint(x))
	}
}

func textValue(s string, numeric bool) types.Value {
	if numeric {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return types.Number(f)
		}
	}
	return types.String(s)
}
