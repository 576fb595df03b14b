package datasource

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"reportPortal/builders"
)

const (
	DefaultMaxOpenConns = 10
	DefaultMaxIdleConns = 2
)

// DB is the pooled handle injected into everything that reads the data source.
type DB = sqlx.DB

type Tx = sqlx.Tx

type dbConfig struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

type Option func(*dbConfig)

func WithMaxOpenConns(n int) Option { return func(c *dbConfig) { c.maxOpenConns = n } }

func WithMaxIdleConns(n int) Option { return func(c *dbConfig) { c.maxIdleConns = n } }

func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *dbConfig) { c.connMaxLifetime = d }
}

// Open returns a connection pool for u and the dialect to build queries with.
// It does not check that the database is reachable; see WaitUntilReady.
func Open(u URL, password string, opts ...Option) (*DB, builders.Dialect, error) {
	dbc := &dbConfig{maxOpenConns: DefaultMaxOpenConns, maxIdleConns: DefaultMaxIdleConns}
	for _, opt := range opts {
		opt(dbc)
	}
	d, err := builders.DialectFor(u.Protocol)
	if err != nil {
		return nil, builders.Dialect{}, err
	}
	var dsn string
	switch d.Name {
	case builders.Postgres.Name:
		dsn = postgresDSN(u, password)
	case builders.MySQL.Name:
		dsn = mySQLDSN(u, password)
	case builders.DuckDB.Name:
		dsn = duckDBDSN(u)
	}
	db, err := sqlx.Open(d.Driver, dsn)
	if err != nil {
		return nil, builders.Dialect{}, errors.WithStack(err)
	}
	if dbc.maxOpenConns != 0 {
		db.SetMaxOpenConns(dbc.maxOpenConns)
	}
	db.SetMaxIdleConns(dbc.maxIdleConns)
	db.SetConnMaxLifetime(dbc.connMaxLifetime)
	return db, d, nil
}

func postgresDSN(u URL, password string) string {
	fields := map[string]string{
		"connect_timeout": "30",
		"host":            u.Host,
		"port":            strconv.Itoa(int(u.Port)),
		"dbname":          u.Database,
	}
	if u.User != "" {
		fields["user"] = u.User
	}
	if password != "" {
		fields["password"] = password
	}
	for k, v := range u.Params {
		fields[k] = v
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteDSNValue(fields[k]))
	}
	return strings.Join(parts, " ")
}

var dsnValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quoteDSNValue renders v as a single-quoted libpq keyword value.
func quoteDSNValue(v string) string {
	return "'" + dsnValueEscaper.Replace(v) + "'"
}

func mySQLDSN(u URL, password string) string {
	params := make(map[string]string, len(u.Params))
	for k, v := range u.Params {
		params[k] = v
	}
	config := mysql.NewConfig()
	config.User = u.User
	config.Passwd = password
	config.Net = "tcp"
	config.Addr = net.JoinHostPort(u.Host, strconv.Itoa(int(u.Port)))
	config.DBName = u.Database
	config.Params = params
	config.ParseTime = true
	config.AllowNativePasswords = true
	return config.FormatDSN()
}

// duckDBDSN opens the file read-only: the driver has no read-only transactions.
func duckDBDSN(u URL) string {
	q := url.Values{}
	for k, v := range u.Params {
		q.Set(k, v)
	}
	if q.Get("access_mode") == "" {
		q.Set("access_mode", "READ_ONLY")
	}
	return u.Database + "?" + q.Encode()
}

// PostgresURL renders u with password in URL form, as golang-migrate expects it.
func PostgresURL(u URL, password string) (string, error) {
	if u.Protocol != ProtocolPostgres && u.Protocol != "postgresql" {
		return "", errors.Errorf("migrations need a postgres data source, got %q", u.Protocol)
	}
	q := url.Values{}
	for k, v := range u.Params {
		q.Set(k, v)
	}
	out := url.URL{
		Scheme:   ProtocolPostgres,
		Host:     net.JoinHostPort(u.Host, strconv.Itoa(int(u.Port))),
		Path:     "/" + u.Database,
		RawQuery: q.Encode(),
	}
	if password != "" {
		out.User = url.UserPassword(u.User, password)
	} else if u.User != "" {
		out.User = url.User(u.User)
	}
	return out.String(), nil
}

// WithReadOnlyTx runs cb inside a read-only transaction. The transaction is committed
// when cb succeeds and rolled back otherwise, including when cb panics; it is released
// exactly once.
func WithReadOnlyTx(ctx context.Context, db *DB, d builders.Dialect, cb func(ctx context.Context, tx *Tx) error) (retErr error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: d.ReadOnlyTx})
	if err != nil {
		return errors.Wrap(err, "begin read-only transaction")
	}
	done := false
	defer func() {
		if !done {
			if err := tx.Rollback(); err != nil && retErr == nil {
				retErr = errors.Wrap(err, "rollback")
			}
		}
	}()
	if err := cb(ctx, tx); err != nil {
		return err
	}
	done = true
	return errors.Wrap(tx.Commit(), "commit read-only transaction")
}

// WaitUntilReady pings the database until it answers or ctx is done.
func WaitUntilReady(ctx context.Context, log *zap.Logger, db *DB) error {
	const period = time.Second
	log.Info("waiting for data source to be ready")
	b := backoff.WithContext(backoff.NewConstantBackOff(period), ctx)
	return errors.WithStack(backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(ctx, period)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Info("data source is not ready", zap.Error(err))
			return errors.WithStack(err)
		}
		log.Info("data source is ready")
		return nil
	}, b))
}
