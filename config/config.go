package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix marks the environment variables read by Load: PORTAL_DB_URL sets db.url.
const EnvPrefix = "PORTAL_"

type Config struct {
	DB    DBConfig    `mapstructure:"db"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	Query QueryConfig `mapstructure:"query"`
	Log   LogConfig   `mapstructure:"log"`
}

type DBConfig struct {
	URL          string `mapstructure:"url"`
	Password     string `mapstructure:"password"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// RoleHeader carries the caller's role, set by the authenticating proxy.
	RoleHeader string `mapstructure:"role_header"`
}

type QueryConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.url", "postgres://portal@localhost:5432/portal?sslmode=disable")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("http.addr", ":8050")
	v.SetDefault("http.role_header", "X-Portal-Role")
	v.SetDefault("query.timeout", "30s")
	v.SetDefault("query.default_page_size", 10)
	v.SetDefault("query.max_page_size", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads defaults, then envFile if it exists, then the process environment.
// An empty envFile means ".env" in the working directory.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(envFile); err == nil {
		fv := viper.New()
		fv.SetConfigFile(envFile)
		fv.SetConfigType("env")
		if err := fv.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read %s", envFile)
		}
		for k, val := range fv.AllSettings() {
			if key, ok := propKey(k); ok {
				v.Set(key, val)
			}
		}
	}

	for _, kv := range os.Environ() {
		k, val, _ := strings.Cut(kv, "=")
		if key, ok := propKey(k); ok {
			v.Set(key, val)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// propKey maps PORTAL_QUERY_MAX_PAGE_SIZE to query.max_page_size.
func propKey(env string) (string, bool) {
	upper := strings.ToUpper(env)
	if !strings.HasPrefix(upper, EnvPrefix) {
		return "", false
	}
	section, key, ok := strings.Cut(strings.ToLower(upper[len(EnvPrefix):]), "_")
	if !ok || section == "" || key == "" {
		return "", false
	}
	return section + "." + key, true
}

func (c *Config) Validate() error {
	if c.DB.URL == "" {
		return errors.New("db.url is required")
	}
	if c.Query.DefaultPageSize < 1 {
		return errors.Errorf("query.default_page_size must be positive, got %d", c.Query.DefaultPageSize)
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return errors.Errorf("query.max_page_size %d is below query.default_page_size %d", c.Query.MaxPageSize, c.Query.DefaultPageSize)
	}
	if c.Query.Timeout < 0 {
		return errors.New("query.timeout must not be negative")
	}
	return nil
}
