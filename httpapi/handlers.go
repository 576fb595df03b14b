package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"reportPortal/builders"
	"reportPortal/logging"
	"reportPortal/query"
	"reportPortal/trend"
	"reportPortal/types"
)

var errBadParam = errors.New("bad query parameter")

const dateLayout = "2006-01-02"

type TablePageResponse struct {
	Rows      []types.RecordRow `json:"rows"`
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
	Total     int64             `json:"total"`
	PageCount int64             `json:"page_count"`
	Editable  bool              `json:"editable"`
}

// TablePage serves one page of the table widget: ?page=&page_size=&sort=col:dir,...&filter=
func (h *Handler) TablePage(c *gin.Context) {
	page, err := intParam(c, "page", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	size, err := intParam(c, "page_size", h.opts.DefaultPageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	if size > h.opts.MaxPageSize {
		size = h.opts.MaxPageSize
	}
	sort, err := types.ParseSortSpec(c.Query("sort"))
	if err != nil {
		h.fail(c, err)
		return
	}
	editable, err := h.roles.Editable(h.role(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	fs := h.table.ParseFilter(c.Query("filter"))
	req := types.PageRequest{PageIndex: page, PageSize: size}
	rows, err := h.table.BuildAndExecute(ctx, fs, sort, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	total, err := h.table.Count(ctx, fs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TablePageResponse{
		Rows:      rows,
		Page:      page,
		PageSize:  size,
		Total:     total,
		PageCount: (total + int64(size) - 1) / int64(size),
		Editable:  editable,
	})
}

func (h *Handler) SalesTrend(c *gin.Context) {
	months, err := h.sales.MonthlyTrend(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}

// SalesBreakdown reads ?customer=a&customer=b&city=c&from=YYYY-MM-DD&to=YYYY-MM-DD.
// A missing customer or city parameter means nothing is selected.
func (h *Handler) SalesBreakdown(c *gin.Context) {
	var req trend.BreakdownRequest
	if v, ok := c.GetQueryArray("customer"); ok {
		req.Customers = v
	}
	if v, ok := c.GetQueryArray("city"); ok {
		req.Cities = v
	}
	var err error
	if req.From, err = dateParam(c, "from"); err != nil {
		h.fail(c, err)
		return
	}
	if req.To, err = dateParam(c, "to"); err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.sales.Breakdown(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) SalesDimensions(c *gin.Context) {
	out, err := h.sales.Dimensions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Permissions(c *gin.Context) {
	role := h.role(c)
	perms, err := h.roles.Permissions(role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role, "permissions": perms})
}

// fail maps err to a status. Execution failures keep their cause in the log only.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, builders.ErrUnknownColumn),
		errors.Is(err, types.ErrBadPage),
		errors.Is(err, types.ErrBadDirection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case query.IsExecution(err):
		h.log.Warn("could not load data", zap.String("request_id", logging.RequestID(c)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not load data"})
	default:
		h.log.Error("request failed", zap.String("request_id", logging.RequestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	s, ok := c.GetQuery(name)
	if !ok || s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(errBadParam, "%s must be an integer, got %q", name, s)
	}
	return n, nil
}

func dateParam(c *gin.Context, name string) (time.Time, error) {
	s := c.Query(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(errBadParam, "%s must be YYYY-MM-DD, got %q", name, s)
	}
	return t, nil
}
