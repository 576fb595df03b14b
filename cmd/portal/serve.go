package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reportPortal/authz"
	"reportPortal/httpapi"
	"reportPortal/query"
	"reportPortal/schemas"
	"reportPortal/trend"
)

func newServeCmd(a *app) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", time.Minute, "how long to wait for the data source at startup")
	return cmd
}

func (a *app) serve(ctx context.Context, wait time.Duration) error {
	db, d, _, err := a.openDB(ctx, wait)
	if err != nil {
		return err
	}
	defer db.Close()

	roles, err := authz.New()
	if err != nil {
		return err
	}
	runner := query.NewRunner(db, d, schemas.Gapminder,
		query.WithTimeout(a.cfg.Query.Timeout),
		query.WithLogger(a.log.Named("query")),
	)
	sales := trend.NewService(db, d,
		trend.WithTimeout(a.cfg.Query.Timeout),
		trend.WithLogger(a.log.Named("sales")),
	)
	gin.SetMode(gin.ReleaseMode)
	h := httpapi.NewHandler(a.log.Named("http"), runner, sales, roles, httpapi.Options{
		RoleHeader:      a.cfg.HTTP.RoleHeader,
		DefaultPageSize: a.cfg.Query.DefaultPageSize,
		MaxPageSize:     a.cfg.Query.MaxPageSize,
	})
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		a.log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return errors.WithStack(srv.Shutdown(shutdownCtx))
	})
	return eg.Wait()
}
