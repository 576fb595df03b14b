package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reportPortal/builders"
	"reportPortal/config"
	"reportPortal/datasource"
	"reportPortal/logging"
)

// app is what every subcommand shares once the root command has loaded config.
type app struct {
	envFile  string
	dbURL    string
	logLevel string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Reporting portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "optional dotenv file with PORTAL_* settings (default .env)")
	root.PersistentFlags().StringVar(&a.dbURL, "db-url", "", "data source URL, overrides PORTAL_DB_URL")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides PORTAL_LOG_LEVEL")

	root.AddCommand(newServeCmd(a), newQueryCmd(a), newMigrateCmd(a), newSchemaCmd(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.dbURL != "" {
		cfg.DB.URL = a.dbURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) dataSourceURL() (*datasource.URL, error) {
	return datasource.ParseURL(a.cfg.DB.URL)
}

// openDB opens the configured data source and waits up to wait for it to answer.
func (a *app) openDB(ctx context.Context, wait time.Duration) (*datasource.DB, builders.Dialect, *datasource.URL, error) {
	u, err := a.dataSourceURL()
	if err != nil {
		return nil, builders.Dialect{}, nil, err
	}
	db, d, err := datasource.Open(*u, a.cfg.DB.Password,
		datasource.WithMaxOpenConns(a.cfg.DB.MaxOpenConns),
		datasource.WithMaxIdleConns(a.cfg.DB.MaxIdleConns),
	)
	if err != nil {
		return nil, builders.Dialect{}, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := datasource.WaitUntilReady(ctx, a.log, db); err != nil {
		db.Close()
		return nil, builders.Dialect{}, nil, err
	}
	a.log.Info("data source opened", zap.String("url", u.String()), zap.String("dialect", d.Name))
	return db, d, u, nil
}
