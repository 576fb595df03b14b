package trend

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"reportPortal/builders"
	"reportPortal/query"
)

func newService(t *testing.T, d builders.Dialect) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	mdb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mdb.Close() })
	return NewService(sqlx.NewDb(mdb, "sqlmock"), d), mock
}

func month(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }

func TestMonthlyTrendFillsGaps(t *testing.T) {
	s, mock := newService(t, builders.Postgres)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT date_trunc('month', "sold_at") AS month, SUM("total") AS total FROM "sales" GROUP BY 1 ORDER BY 1`).
		WillReturnRows(sqlmock.NewRows([]string{"month", "total"}).
			AddRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("MSK", 3*3600)), "1234567").
			AddRow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.FixedZone("MSK", 3*3600)), 2500000.5))
	mock.ExpectCommit()

	got, err := s.MonthlyTrend(context.Background())
	require.NoError(t, err)
	require.Equal(t, []MonthTotal{
		{Month: month(2024, time.January), Total: 1.23},
		{Month: month(2024, time.February), Total: 0},
		{Month: month(2024, time.March), Total: 2.5},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyTrendMySQL(t *testing.T) {
	s, mock := newService(t, builders.MySQL)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT DATE_FORMAT(`sold_at`, '%Y-%m-01') AS month, SUM(`total`) AS total FROM `sales` GROUP BY 1 ORDER BY 1").
		WillReturnRows(sqlmock.NewRows([]string{"month", "total"}).
			AddRow([]byte("2023-12-01"), []byte("10000")).
			AddRow("2024-01-01", int64(20000)))
	mock.ExpectCommit()

	got, err := s.MonthlyTrend(context.Background())
	require.NoError(t, err)
	require.Equal(t, []MonthTotal{
		{Month: month(2023, time.December), Total: 0.01},
		{Month: month(2024, time.January), Total: 0.02},
	}, got)
}

func TestMonthlyTrendEmpty(t *testing.T) {
	s, mock := newService(t, builders.Postgres)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT date_trunc('month', "sold_at") AS month, SUM("total") AS total FROM "sales" GROUP BY 1 ORDER BY 1`).
		WillReturnRows(sqlmock.NewRows([]string{"month", "total"}))
	mock.ExpectCommit()

	got, err := s.MonthlyTrend(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
	require.NotNil(t, got)
}

func TestBreakdown(t *testing.T) {
	s, mock := newService(t, builders.Postgres)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	where := `WHERE ("customer" IN ($1,$2) AND "city" IN ($3) AND "sold_at" >= $4 AND "sold_at" <= $5)`

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "category", SUM("total") AS total FROM "sales" `+where+` GROUP BY "category" ORDER BY "category"`).
		WithArgs("Acme", "Globex", "Kazan", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total"}).
			AddRow("Furniture", "300.5").
			AddRow("Office", 120.0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "product", SUM("total") AS total FROM "sales" `+where+` GROUP BY "product" ORDER BY "product"`).
		WithArgs("Acme", "Globex", "Kazan", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"product", "total"}).
			AddRow("Chair", 200.5).
			AddRow("Desk", 100.0).
			AddRow("Pen", 120.0))
	mock.ExpectCommit()

	got, err := s.Breakdown(context.Background(), BreakdownRequest{
		Customers: []string{"Acme", "Globex"},
		Cities:    []string{"Kazan"},
		From:      from,
		To:        to,
	})
	require.NoError(t, err)
	require.Equal(t, Breakdown{
		Categories: []Amount{{Name: "Furniture", Total: 300.5}, {Name: "Office", Total: 120}},
		Products:   []Amount{{Name: "Desk", Total: 100}, {Name: "Pen", Total: 120}, {Name: "Chair", Total: 200.5}},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdownWithoutSelection(t *testing.T) {
	s, mock := newService(t, builders.Postgres)
	got, err := s.Breakdown(context.Background(), BreakdownRequest{Customers: []string{"Acme"}})
	require.NoError(t, err)
	require.Empty(t, got.Categories)
	require.Empty(t, got.Products)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdownFailure(t *testing.T) {
	s, mock := newService(t, builders.Postgres)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "category", SUM("total") AS total FROM "sales" WHERE ("customer" IN ($1) AND "city" IN ($2)) GROUP BY "category" ORDER BY "category"`).
		WithArgs("Acme", "Kazan").
		WillReturnError(errors.New("relation \"sales\" does not exist"))
	mock.ExpectRollback()

	_, err := s.Breakdown(context.Background(), BreakdownRequest{Customers: []string{"Acme"}, Cities: []string{"Kazan"}})
	require.True(t, query.IsExecution(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDimensions(t *testing.T) {
	s, mock := newService(t, builders.Postgres)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT DISTINCT "customer" FROM "sales" WHERE "customer" IS NOT NULL ORDER BY "customer"`).
		WillReturnRows(sqlmock.NewRows([]string{"customer"}).AddRow("Acme").AddRow("Globex"))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT DISTINCT "city" FROM "sales" WHERE "city" IS NOT NULL ORDER BY "city"`).
		WillReturnRows(sqlmock.NewRows([]string{"city"}).AddRow("Kazan"))
	mock.ExpectCommit()

	got, err := s.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, Dimensions{Customers: []string{"Acme", "Globex"}, Cities: []string{"Kazan"}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMillions(t *testing.T) {
	require.Equal(t, 1.24, millions(1236000))
	require.Equal(t, 0.0, millions(0))
}
