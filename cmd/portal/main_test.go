package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateNeedsPostgres(t *testing.T) {
	_, err := run(t, "--db-url", "duckdb:///tmp/portal.duckdb", "migrate", "up")
	require.ErrorContains(t, err, "migrations need a postgres data source")
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "shouty", "schema")
	require.ErrorContains(t, err, "log level")
}

func TestUnsupportedDataSource(t *testing.T) {
	_, err := run(t, "--db-url", "oracle://scott@db/orcl", "query")
	require.ErrorContains(t, err, "not supported")
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{{"serve"}, {"query"}, {"schema"}, {"migrate", "up"}, {"migrate", "down"}} {
		c, _, err := root.Find(path)
		require.NoError(t, err)
		require.Equal(t, path[len(path)-1], c.Name())
	}
}
