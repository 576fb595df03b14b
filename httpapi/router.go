// Package httpapi exposes the portal data over HTTP for the dashboard front end.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reportPortal/logging"
	"reportPortal/trend"
	"reportPortal/types"
)

// Table pages through one configured table.
type Table interface {
	ParseFilter(expr string) []types.FilterClause
	BuildAndExecute(ctx context.Context, fs []types.FilterClause, sort types.SortSpec, page types.PageRequest) ([]types.RecordRow, error)
	Count(ctx context.Context, fs []types.FilterClause) (int64, error)
}

type Sales interface {
	MonthlyTrend(ctx context.Context) ([]trend.MonthTotal, error)
	Breakdown(ctx context.Context, req trend.BreakdownRequest) (trend.Breakdown, error)
	Dimensions(ctx context.Context) (trend.Dimensions, error)
}

type Roles interface {
	Permissions(role string) ([]string, error)
	Editable(role string) (bool, error)
}

type Options struct {
	RoleHeader      string
	DefaultPageSize int
	MaxPageSize     int
}

type Handler struct {
	log   *zap.Logger
	table Table
	sales Sales
	roles Roles
	opts  Options
}

func NewHandler(log *zap.Logger, table Table, sales Sales, roles Roles, opts Options) *Handler {
	if opts.RoleHeader == "" {
		opts.RoleHeader = "X-Portal-Role"
	}
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	return &Handler{log: log, table: table, sales: sales, roles: roles, opts: opts}
}

// Router wires every route of h.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(h.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/gapminder", h.TablePage)
	api.GET("/permissions", h.Permissions)

	sales := api.Group("/sales")
	sales.GET("/trend", h.SalesTrend)
	sales.GET("/breakdown", h.SalesBreakdown)
	sales.GET("/dimensions", h.SalesDimensions)
	return r
}

func (h *Handler) role(c *gin.Context) string {
	return c.GetHeader(h.opts.RoleHeader)
}
