package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "postgres://portal@localhost:5432/portal?sslmode=disable", c.DB.URL)
	require.Equal(t, 10, c.DB.MaxOpenConns)
	require.Equal(t, ":8050", c.HTTP.Addr)
	require.Equal(t, "X-Portal-Role", c.HTTP.RoleHeader)
	require.Equal(t, 30*time.Second, c.Query.Timeout)
	require.Equal(t, 10, c.Query.DefaultPageSize)
	require.Equal(t, 1000, c.Query.MaxPageSize)
	require.Equal(t, "info", c.Log.Level)
}

func TestLoadEnvFileThenEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "portal.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORTAL_DB_URL=duckdb:///tmp/portal.duckdb\nPORTAL_LOG_LEVEL=debug\nOTHER_THING=1\n"), 0600))
	t.Setenv("PORTAL_LOG_LEVEL", "warn")
	t.Setenv("PORTAL_QUERY_TIMEOUT", "5s")
	t.Setenv("PORTAL_QUERY_MAX_PAGE_SIZE", "50")

	c, err := Load(envFile)
	require.NoError(t, err)
	require.Equal(t, "duckdb:///tmp/portal.duckdb", c.DB.URL)
	require.Equal(t, "warn", c.Log.Level)
	require.Equal(t, 5*time.Second, c.Query.Timeout)
	require.Equal(t, 50, c.Query.MaxPageSize)
}

func TestLoadRejectsBadPaging(t *testing.T) {
	t.Setenv("PORTAL_QUERY_DEFAULT_PAGE_SIZE", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestPropKey(t *testing.T) {
	k, ok := propKey("PORTAL_DB_MAX_OPEN_CONNS")
	require.True(t, ok)
	require.Equal(t, "db.max_open_conns", k)

	_, ok = propKey("PORTAL_")
	require.False(t, ok)
	_, ok = propKey("HOME")
	require.False(t, ok)
}
