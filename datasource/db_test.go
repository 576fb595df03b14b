package datasource

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"reportPortal/builders"
)

func TestParseURL(t *testing.T) {
	u, err := ParseURL("postgres://portal@db.local/reports?sslmode=disable")
	require.NoError(t, err)
	require.Equal(t, &URL{
		Protocol: "postgres",
		User:     "portal",
		Host:     "db.local",
		Port:     5432,
		Database: "reports",
		Params:   map[string]string{"sslmode": "disable"},
	}, u)
	require.Equal(t, "postgres://portal@db.local:5432/reports", u.String())

	u, err = ParseURL("mysql://root@127.0.0.1:3307/reports")
	require.NoError(t, err)
	require.Equal(t, uint16(3307), u.Port)

	u, err = ParseURL("duckdb:///var/lib/portal/portal.duckdb")
	require.NoError(t, err)
	require.Equal(t, "/var/lib/portal/portal.duckdb", u.Database)

	_, err = ParseURL("oracle://x@y/z")
	require.Error(t, err)
	_, err = ParseURL("oracle://x@y:1521/z")
	require.Error(t, err)

	_, err = ParseURL("postgres://portal@db:70000/reports")
	require.ErrorContains(t, err, "65535")

	u, err = ParseURL("postgres://db:6543/reports")
	require.NoError(t, err)
	require.Equal(t, uint16(6543), u.Port)
	require.Equal(t, "postgres://db:6543/reports", u.String())
}

func TestDSNs(t *testing.T) {
	u := URL{Protocol: "postgres", User: "portal", Host: "db", Port: 5432, Database: "reports", Params: map[string]string{"sslmode": "disable"}}
	require.Equal(t, "connect_timeout='30' dbname='reports' host='db' password='secret' port='5432' sslmode='disable' user='portal'", postgresDSN(u, "secret"))
	require.Equal(t, `connect_timeout='30' dbname='reports' host='db' password='my pass\'s \\x' port='5432' sslmode='disable' user='portal'`, postgresDSN(u, `my pass's \x`))

	cfg, err := pgconn.ParseConfig(postgresDSN(u, `my pass's \x`))
	require.NoError(t, err)
	require.Equal(t, `my pass's \x`, cfg.Password)
	require.Equal(t, "reports", cfg.Database)

	migrateURL, err := PostgresURL(u, "secret")
	require.NoError(t, err)
	require.Equal(t, "postgres://portal:secret@db:5432/reports?sslmode=disable", migrateURL)

	_, err = PostgresURL(URL{Protocol: "mysql"}, "")
	require.Error(t, err)

	require.Equal(t, "/data/portal.duckdb?access_mode=READ_ONLY", duckDBDSN(URL{Protocol: "duckdb", Database: "/data/portal.duckdb"}))
	require.Contains(t, mySQLDSN(URL{Protocol: "mysql", User: "root", Host: "h", Port: 3306, Database: "reports"}, "pw"), "root:pw@tcp(h:3306)/reports")
}

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mdb.Close() })
	return sqlx.NewDb(mdb, "sqlmock"), mock
}

func TestWithReadOnlyTxCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	err := WithReadOnlyTx(context.Background(), db, builders.Postgres, func(ctx context.Context, tx *Tx) error {
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithReadOnlyTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err := WithReadOnlyTx(context.Background(), db, builders.Postgres, func(ctx context.Context, tx *Tx) error {
		return boom
	})
	require.Equal(t, boom, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithReadOnlyTxRollsBackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	require.Panics(t, func() {
		_ = WithReadOnlyTx(context.Background(), db, builders.Postgres, func(ctx context.Context, tx *Tx) error {
			panic("scan exploded")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithReadOnlyTxBeginFails(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	called := false
	err := WithReadOnlyTx(context.Background(), db, builders.Postgres, func(ctx context.Context, tx *Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}
