package schemas

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"reportPortal/types"
)

var (
	ErrMissingTable  = errors.New("table not found")
	ErrMissingColumn = errors.New("column not found")
)

type Column struct {
	Name string
	Type types.ColType
}

// Table is an ordered column set. The order is the SELECT order and therefore the
// order of every RecordRow read from it.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey string
}

func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

type Schema struct{ Tables map[string]Table }

// Gapminder is the country statistics table behind the paged table view.
var Gapminder = Table{
	Name: "gapminder",
	Columns: []Column{
		{Name: "country", Type: types.ColText},
		{Name: "population", Type: types.ColNumeric},
		{Name: "life_exp", Type: types.ColNumeric},
		{Name: "gdp_percap", Type: types.ColNumeric},
	},
	PrimaryKey: "country",
}

// Sales holds one row per sold order line, feeding the sales charts.
var Sales = Table{
	Name: "sales",
	Columns: []Column{
		{Name: "sold_at", Type: types.ColTime},
		{Name: "customer", Type: types.ColText},
		{Name: "city", Type: types.ColText},
		{Name: "category", Type: types.ColText},
		{Name: "product", Type: types.ColText},
		{Name: "total", Type: types.ColNumeric},
	},
}

type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadSchema reads column definitions of the given tables from information_schema.
func LoadSchema(ctx context.Context, db Queryer, ph sq.PlaceholderFormat, schemaName string, tables []string) (Schema, error) {
	if len(tables) == 0 {
		return Schema{}, errors.New("no tables")
	}
	q, args, err := sq.Select(
		"c.table_name", "c.column_name", "c.data_type",
		"COALESCE(tc.constraint_type = 'PRIMARY KEY', false) AS is_pk",
	).
		From("information_schema.columns c").
		LeftJoin("information_schema.key_column_usage k ON k.table_name = c.table_name AND k.column_name = c.column_name").
		LeftJoin("information_schema.table_constraints tc ON tc.table_name = k.table_name AND tc.constraint_name = k.constraint_name").
		Where(sq.Eq{"c.table_schema": schemaName}).
		Where(sq.Eq{"c.table_name": tables}).
		OrderBy("c.table_name", "c.ordinal_position").
		PlaceholderFormat(ph).
		ToSql()
	if err != nil {
		return Schema{}, errors.WithStack(err)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return Schema{}, errors.Wrap(err, "query information_schema")
	}
	defer rows.Close()

	s := Schema{Tables: map[string]Table{}}
	for rows.Next() {
		var tname, cname, dtype string
		var isPK bool
		if err := rows.Scan(&tname, &cname, &dtype, &isPK); err != nil {
			return Schema{}, errors.WithStack(err)
		}
		tab := s.Tables[tname]
		if tab.Name == "" {
			tab = Table{Name: tname}
		}
		if _, dup := tab.Column(cname); !dup {
			tab.Columns = append(tab.Columns, Column{Name: cname, Type: mapDataType(dtype)})
		}
		if isPK && tab.PrimaryKey == "" {
			tab.PrimaryKey = cname
		}
		s.Tables[tname] = tab
	}
	return s, errors.WithStack(rows.Err())
}

// Verify checks that every column of want exists in the live schema.
func Verify(live Schema, want Table) error {
	tab, ok := live.Tables[want.Name]
	if !ok {
		return errors.Wrapf(ErrMissingTable, "%q", want.Name)
	}
	var missing []string
	for _, c := range want.Columns {
		if _, ok := tab.Column(c.Name); !ok {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingColumn, "%s: %s", want.Name, strings.Join(missing, ", "))
	}
	return nil
}

func mapDataType(d string) types.ColType {
	d = strings.ToLower(d)
	switch {
	case strings.Contains(d, "char"), strings.Contains(d, "text"), strings.Contains(d, "citext"):
		return types.ColText
	case strings.Contains(d, "int"), strings.Contains(d, "numeric"), strings.Contains(d, "decimal"), strings.Contains(d, "real"), strings.Contains(d, "double"), strings.Contains(d, "float"):
		return types.ColNumeric
	case strings.Contains(d, "bool"):
		return types.ColBool
	case strings.Contains(d, "time"), strings.Contains(d, "date"):
		return types.ColTime
	case strings.Contains(d, "uuid"):
		return types.ColUUID
	case strings.Contains(d, "json"):
		return types.ColJSON
	default:
		return types.ColUnknown
	}
}
