package builders

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"reportPortal/schemas"
	"reportPortal/types"
)

var ErrUnknownColumn = errors.New("unknown column")

// BuildSelect renders spec against tab. Every user value is bound; identifiers come
// from tab only. The query is always paginated.
func BuildSelect(spec types.QuerySpec, tab schemas.Table, d Dialect) (string, []any, error) {
	if err := spec.Page.Validate(); err != nil {
		return "", nil, err
	}
	cols := make([]string, len(tab.Columns))
	for i, c := range tab.Columns {
		cols[i] = d.Quote(c.Name)
	}
	b := sq.Select(cols...).From(d.Quote(tab.Name)).PlaceholderFormat(d.Placeholder)

	b, err := applyWhere(b, spec.Filters, tab, d)
	if err != nil {
		return "", nil, err
	}

	// ORDER BY keeps the list order: the first key is the primary key.
	for _, s := range spec.Sort {
		if _, ok := tab.Column(s.Column); !ok {
			return "", nil, errors.Wrapf(ErrUnknownColumn, "sort %q", s.Column)
		}
		b = b.OrderBy(d.Quote(s.Column) + " " + s.Dir.String())
	}

	b = b.Limit(spec.Page.Limit()).Offset(spec.Page.Offset())

	q, args, err := b.ToSql()
	return q, args, errors.WithStack(err)
}

// BuildCount renders the number of rows matching filters, without sort or page.
func BuildCount(filters []types.FilterClause, tab schemas.Table, d Dialect) (string, []any, error) {
	b := sq.Select("count(*)").From(d.Quote(tab.Name)).PlaceholderFormat(d.Placeholder)
	b, err := applyWhere(b, filters, tab, d)
	if err != nil {
		return "", nil, err
	}
	q, args, err := b.ToSql()
	return q, args, errors.WithStack(err)
}

func applyWhere(b sq.SelectBuilder, filters []types.FilterClause, tab schemas.Table, d Dialect) (sq.SelectBuilder, error) {
	for _, f := range filters {
		pred, err := Predicate(f, tab, d)
		if err != nil {
			return b, err
		}
		b = b.Where(pred)
	}
	return b, nil
}

// Predicate renders one clause. CONTAINS is a case-sensitive LIKE on "%value%".
func Predicate(f types.FilterClause, tab schemas.Table, d Dialect) (sq.Sqlizer, error) {
	if _, ok := tab.Column(f.Column); !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "where %q", f.Column)
	}
	col := d.Quote(f.Column)
	arg := f.Value.Arg()
	switch f.Op {
	case types.OpEq:
		return sq.Eq{col: arg}, nil
	case types.OpNe:
		return sq.NotEq{col: arg}, nil
	case types.OpLt:
		return sq.Lt{col: arg}, nil
	case types.OpLe:
		return sq.LtOrEq{col: arg}, nil
	case types.OpGt:
		return sq.Gt{col: arg}, nil
	case types.OpGe:
		return sq.GtOrEq{col: arg}, nil
	case types.OpContains:
		pattern := "%" + f.Value.String() + "%"
		if d.Name == MySQL.Name {
			// default collations compare case-insensitively
			return sq.Expr(col+" LIKE BINARY ?", pattern), nil
		}
		return sq.Like{col: pattern}, nil
	default:
		return nil, errors.Errorf("unsupported op %v", f.Op)
	}
}
