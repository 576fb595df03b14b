// Package migrations creates the portal tables in a postgres data source.
package migrations

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// Source returns the embedded migration files.
func Source() (source.Driver, error) {
	d, err := iofs.New(files, "sql")
	return d, errors.WithStack(err)
}

type zapLogger struct{ log *zap.SugaredLogger }

func (l zapLogger) Printf(format string, v ...any) { l.log.Infof(format, v...) }
func (l zapLogger) Verbose() bool { return false }

func open(log *zap.Logger, dbURL string) (*migrate.Migrate, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "create migration instance")
	}
	m.Log = zapLogger{log: log.Sugar()}
	return m, nil
}

// Up applies every pending migration. dbURL is a postgres:// URL.
func Up(log *zap.Logger, dbURL string) error {
	return run(log, dbURL, "up", func(m *migrate.Migrate) error { return m.Up() })
}

// Down reverts the last applied migration.
func Down(log *zap.Logger, dbURL string) error {
	return run(log, dbURL, "down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

func run(log *zap.Logger, dbURL, direction string, f func(*migrate.Migrate) error) error {
	m, err := open(log, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := f(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrapf(err, "migrate %s", direction)
	}
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("migrations done", zap.String("direction", direction), zap.String("version", "none"))
	case err != nil:
		return errors.WithStack(err)
	default:
		log.Info("migrations done", zap.String("direction", direction), zap.String("version", fmt.Sprint(version)), zap.Bool("dirty", dirty))
	}
	return nil
}
