// Package trend serves the sales charts: a monthly revenue trend and a category/product
// breakdown for a customer, city and date selection.
package trend

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"reportPortal/builders"
	"reportPortal/datasource"
	"reportPortal/metrics"
	"reportPortal/query"
	"reportPortal/schemas"
	"reportPortal/types"
)

// MonthTotal is the revenue of one calendar month in millions, rounded to cents.
type MonthTotal struct {
	Month time.Time `json:"month"`
	Total float64   `json:"total"`
}

type Amount struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// BreakdownRequest selects sales rows. A nil Customers or Cities means nothing is
// selected yet. Zero From or To leave that side of the range open; both ends are inclusive.
type BreakdownRequest struct {
	Customers []string
	Cities    []string
	From      time.Time
	To        time.Time
}

type Breakdown struct {
	Categories []Amount `json:"categories"`
	// Products is sorted by ascending total.
	Products []Amount `json:"products"`
}

type Dimensions struct {
	Customers []string `json:"customers"`
	Cities    []string `json:"cities"`
}

type Service struct {
	db      *datasource.DB
	dialect builders.Dialect
	table   schemas.Table
	log     *zap.Logger
	timeout time.Duration
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func NewService(db *datasource.DB, d builders.Dialect, opts ...Option) *Service {
	s := &Service{db: db, dialect: d, table: schemas.Sales, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) q(ident string) string { return s.dialect.Quote(ident) }

// MonthlyTrend returns one entry per month from the first to the last month with sales.
// Months without sales are present with a zero total.
func (s *Service) MonthlyTrend(ctx context.Context) ([]MonthTotal, error) {
	b := sq.Select(
		s.dialect.TruncMonth("sold_at")+" AS month",
		"SUM("+s.q("total")+") AS total",
	).From(s.q(s.table.Name)).GroupBy("1").OrderBy("1")

	sums := map[time.Time]float64{}
	var first, last time.Time
	err := s.read(ctx, "trend", b, func(rows *sql.Rows) error {
		for rows.Next() {
			var rawMonth, rawTotal any
			if err := rows.Scan(&rawMonth, &rawTotal); err != nil {
				return errors.WithStack(err)
			}
			m, err := toMonth(rawMonth)
			if err != nil {
				return err
			}
			v, err := toFloat(rawTotal)
			if err != nil {
				return err
			}
			sums[m] += v
			if first.IsZero() || m.Before(first) {
				first = m
			}
			if m.After(last) {
				last = m
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := []MonthTotal{}
	if len(sums) == 0 {
		return out, nil
	}
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, MonthTotal{Month: m, Total: millions(sums[m])})
	}
	return out, nil
}

// Breakdown totals the selected rows per category and per product.
func (s *Service) Breakdown(ctx context.Context, req BreakdownRequest) (Breakdown, error) {
	out := Breakdown{Categories: []Amount{}, Products: []Amount{}}
	if req.Customers == nil || req.Cities == nil {
		return out, nil
	}
	where := sq.And{
		sq.Eq{s.q("customer"): req.Customers},
		sq.Eq{s.q("city"): req.Cities},
	}
	if !req.From.IsZero() {
		where = append(where, sq.GtOrEq{s.q("sold_at"): req.From})
	}
	if !req.To.IsZero() {
		where = append(where, sq.LtOrEq{s.q("sold_at"): req.To})
	}

	var err error
	if out.Categories, err = s.totalsBy(ctx, "category", where); err != nil {
		return Breakdown{}, err
	}
	if out.Products, err = s.totalsBy(ctx, "product", where); err != nil {
		return Breakdown{}, err
	}
	sort.SliceStable(out.Products, func(i, j int) bool { return out.Products[i].Total < out.Products[j].Total })
	return out, nil
}

func (s *Service) totalsBy(ctx context.Context, col string, where sq.Sqlizer) ([]Amount, error) {
	b := sq.Select(s.q(col), "SUM("+s.q("total")+") AS total").
		From(s.q(s.table.Name)).
		Where(where).
		GroupBy(s.q(col)).
		OrderBy(s.q(col))
	out := []Amount{}
	err := s.read(ctx, "breakdown", b, func(rows *sql.Rows) error {
		for rows.Next() {
			var name sql.NullString
			var raw any
			if err := rows.Scan(&name, &raw); err != nil {
				return errors.WithStack(err)
			}
			v, err := toFloat(raw)
			if err != nil {
				return err
			}
			out = append(out, Amount{Name: name.String, Total: v})
		}
		return nil
	})
	return out, err
}

// Dimensions lists the distinct customers and cities to choose from.
func (s *Service) Dimensions(ctx context.Context) (Dimensions, error) {
	customers, err := s.distinct(ctx, "customer")
	if err != nil {
		return Dimensions{}, err
	}
	cities, err := s.distinct(ctx, "city")
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{Customers: customers, Cities: cities}, nil
}

func (s *Service) distinct(ctx context.Context, col string) ([]string, error) {
	b := sq.Select(s.q(col)).Distinct().
		From(s.q(s.table.Name)).
		Where(sq.NotEq{s.q(col): nil}).
		OrderBy(s.q(col))
	out := []string{}
	err := s.read(ctx, "dimensions", b, func(rows *sql.Rows) error {
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return errors.WithStack(err)
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (s *Service) read(ctx context.Context, op string, b sq.SelectBuilder, scan func(*sql.Rows) error) error {
	q, args, err := b.PlaceholderFormat(s.dialect.Placeholder).ToSql()
	if err != nil {
		return errors.WithStack(err)
	}
	start := time.Now()
	err = query.Read(ctx, s.db, s.dialect, s.timeout, q, args, scan)
	metrics.ObserveQuery(op, time.Since(start), err)
	if err != nil {
		s.log.Warn("sales query failed", zap.String("op", op), zap.String("sql", q), zap.Error(err))
		return err
	}
	s.log.Debug("sales query done", zap.String("op", op), zap.Duration("took", time.Since(start)))
	return nil
}

func millions(v float64) float64 {
	return math.Round(v/1e6*100) / 100
}

func toMonth(v any) (time.Time, error) {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		return parseMonth(x)
	case []byte:
		return parseMonth(string(x))
	default:
		return time.Time{}, errors.Errorf("unexpected month value %T", v)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

func parseMonth(s string) (time.Time, error) {
	if len(s) < len("2006-01") {
		return time.Time{}, errors.Errorf("unexpected month value %q", s)
	}
	t, err := time.Parse("2006-01", s[:len("2006-01")])
	return t, errors.Wrapf(err, "month %q", s)
}

func toFloat(v any) (float64, error) {
	if f, ok := types.AsFloat(v); ok {
		return f, nil
	}
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, errors.WithStack(err)
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, errors.WithStack(err)
	default:
		return 0, errors.Errorf("unexpected total value %T", v)
	}
}
