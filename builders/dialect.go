package builders

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"reportPortal/utils"
)

// Dialect captures the per-database differences the builders care about.
type Dialect struct {
	Name          string
	Driver        string
	Placeholder   sq.PlaceholderFormat
	Quote         func(string) string
	DefaultSchema string
	// ReadOnlyTx is false for drivers that reject sql.TxOptions{ReadOnly: true}.
	ReadOnlyTx bool
}

var (
	Postgres = Dialect{
		Name:          "postgres",
		Driver:        "pgx",
		Placeholder:   sq.Dollar,
		Quote:         utils.QuoteIdentPG,
		DefaultSchema: "public",
		ReadOnlyTx:    true,
	}
	MySQL = Dialect{
		Name:        "mysql",
		Driver:      "mysql",
		Placeholder: sq.Question,
		Quote:       utils.QuoteIdentMySQL,
		ReadOnlyTx:  true,
	}
	DuckDB = Dialect{
		Name:          "duckdb",
		Driver:        "duckdb",
		Placeholder:   sq.Dollar,
		Quote:         utils.QuoteIdentPG,
		DefaultSchema: "main",
	}
)

// DialectFor maps a URL scheme or driver name to its dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "duckdb":
		return DuckDB, nil
	default:
		return Dialect{}, errors.Errorf("database protocol %q not supported", name)
	}
}

// TruncMonth renders an expression yielding the first day of col's month.
func (d Dialect) TruncMonth(col string) string {
	if d.Name == MySQL.Name {
		return "DATE_FORMAT(" + d.Quote(col) + ", '%Y-%m-01')"
	}
	return "date_trunc('month', " + d.Quote(col) + ")"
}

// ExplainPrefix is prepended to a query to get its executed plan.
func (d Dialect) ExplainPrefix() string {
	if d.Name == Postgres.Name {
		return "EXPLAIN (ANALYZE, BUFFERS, FORMAT TEXT) "
	}
	return "EXPLAIN ANALYZE "
}
