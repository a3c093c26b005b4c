package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kartikbazzad/bunbase/lookup/internal/config"
	"github.com/kartikbazzad/bunbase/lookup/internal/export"
	"github.com/kartikbazzad/bunbase/lookup/internal/metrics"
	"github.com/kartikbazzad/bunbase/lookup/internal/query"
	"github.com/kartikbazzad/bunbase/lookup/internal/snapshot"
	apperrors "github.com/kartikbazzad/bunbase/lookup/pkg/errors"
)

// QueryHandler serves search, distinct values and export over the current snapshot.
type QueryHandler struct {
	store         *snapshot.Store
	opts          query.Options
	filterFields  []string
	exportColumns []string
	collator      *query.Collator
	now           func() time.Time
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(store *snapshot.Store, cfg config.QueryConfig) *QueryHandler {
	return &QueryHandler{
		store: store,
		opts: query.Options{
			DateFields:   cfg.DateFields,
			DefaultLimit: cfg.DefaultLimit,
			MaxLimit:     cfg.MaxLimit,
		},
		filterFields:  cfg.FilterFields,
		exportColumns: cfg.ExportColumns,
		collator:      query.NewCollator(cfg.Locale),
		now:           time.Now,
	}
}

// Data returns the whole current collection.
func (h *QueryHandler) Data(c *gin.Context) {
	snap := h.store.Current()
	metrics.QueriesTotal.WithLabelValues("data").Inc()
	c.JSON(http.StatusOK, snap.Records)
}

// Search filters and paginates the current collection.
func (h *QueryHandler) Search(c *gin.Context) {
	snap := h.store.Current()
	q := query.Parse(c.Request.URL.Query(), h.opts)
	result := query.Search(snap.Records, q)

	metrics.QueriesTotal.WithLabelValues("search").Inc()
	metrics.QueryMatches.Observe(float64(result.Total))
	c.JSON(http.StatusOK, result)
}

// Filters lists the distinct values of the requested fields
// (?fields=a,b), or of the configured filter fields.
func (h *QueryHandler) Filters(c *gin.Context) {
	fields := h.filterFields
	if raw := c.QueryArray("fields"); len(raw) > 0 {
		fields = splitFields(raw)
	}
	if len(fields) == 0 {
		respondError(c, apperrors.BadRequest("no fields requested"))
		return
	}

	snap := h.store.Current()
	metrics.QueriesTotal.WithLabelValues("filters").Inc()
	c.JSON(http.StatusOK, query.DistinctValues(snap.Records, fields, h.collator))
}

// Export writes the filtered collection (no pagination) as an xlsx attachment.
func (h *QueryHandler) Export(c *gin.Context) {
	snap := h.store.Current()
	q := query.Parse(c.Request.URL.Query(), h.opts)

	columns := h.exportColumns
	if len(columns) == 0 {
		columns = snap.Catalog
	}
	data, err := export.ExportTable(snap.Records, q, columns, h.opts.DateFields)
	if err != nil {
		respondError(c, apperrors.Internal(err))
		return
	}

	metrics.QueriesTotal.WithLabelValues("export").Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(h.now())))
	c.Data(http.StatusOK, export.ContentType, data)
}

func splitFields(raw []string) []string {
	var fields []string
	for _, item := range raw {
		for _, f := range strings.Split(item, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}
