package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/export"
	"github.com/logvault/logvault/internal/ingest"
	"github.com/logvault/logvault/internal/model"
	"github.com/logvault/logvault/internal/response"
	"github.com/logvault/logvault/internal/search"
)

// Ingestor normalizes and persists one raw batch.
type Ingestor interface {
	Ingest(ctx context.Context, raw []byte) (model.IngestResult, error)
}

// Searcher answers paginated search requests and owns sort validation.
type Searcher interface {
	Search(ctx context.Context, p model.SearchParams) (model.PaginatedResult, error)
	OrderClause(sortBy, sortOrder string) string
}

// RecentStore fetches the newest entries for the live view.
type RecentStore interface {
	RecentLogs(ctx context.Context, limit int) ([]model.LogView, error)
}

// LogHandler serves ingestion, search and export.
type LogHandler struct {
	Pipeline Ingestor
	Searcher Searcher
	Exporter export.Store
	Store    RecentStore
	Logger   zerolog.Logger
}

// Ingest handles POST /ingest: a JSON array or newline-delimited JSON
// objects. Malformed payloads reject the batch; semantically invalid entries
// follow the configured per-entry policy and are reported in the result.
func (h *LogHandler) Ingest(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return response.BadRequest(c, "could not read request body", err.Error())
	}

	result, err := h.Pipeline.Ingest(c.Request().Context(), raw)
	if err != nil {
		if errors.Is(err, ingest.ErrBadBatch) {
			return response.BadRequest(c, "invalid log batch", err.Error())
		}
		h.Logger.Error().Err(err).Str("principal", principalFrom(c)).Msg("ingest failed")
		return response.InternalError(c, "failed to ingest logs", err.Error())
	}

	h.Logger.Info().
		Str("principal", principalFrom(c)).
		Stringer("batch_id", result.BatchID).
		Int("accepted", result.Accepted).
		Msg("ingest request")
	return response.Created(c, result, result.Message)
}

// Search handles GET /search with filter, sort and pagination parameters.
func (h *LogHandler) Search(c echo.Context) error {
	params, err := searchParams(c)
	if err != nil {
		return response.BadRequest(c, "invalid search parameters", err.Error())
	}

	result, err := h.Searcher.Search(c.Request().Context(), params)
	if err != nil {
		h.Logger.Error().Err(err).Str("query", params.Query).Msg("search failed")
		return response.InternalError(c, "search failed", err.Error())
	}
	return response.OK(c, result, "")
}

// SearchFields handles GET /search/fields: the filterable/sortable columns.
func (h *LogHandler) SearchFields(c echo.Context) error {
	return response.OK(c, map[string]any{
		"log_fields":  search.SortableColumns(),
		"severities":  model.Severities,
		"sort_orders": []string{"asc", "desc"},
	}, "")
}

// TimeRangeOptions handles GET /search/timerange: preset windows for the UI.
func (h *LogHandler) TimeRangeOptions(c echo.Context) error {
	now := time.Now().UTC()
	type option struct {
		Label     string    `json:"label"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	return response.OK(c, map[string]any{"options": []option{
		{Label: "Last 15 minutes", StartTime: now.Add(-15 * time.Minute), EndTime: now},
		{Label: "Last hour", StartTime: now.Add(-time.Hour), EndTime: now},
		{Label: "Last 24 hours", StartTime: now.Add(-24 * time.Hour), EndTime: now},
		{Label: "Last 7 days", StartTime: now.Add(-7 * 24 * time.Hour), EndTime: now},
		{Label: "Last 30 days", StartTime: now.Add(-30 * 24 * time.Hour), EndTime: now},
	}}, "")
}

// Recent handles GET /logs/recent?limit=.
func (h *LogHandler) Recent(c echo.Context) error {
	limit := intParam(c, "limit", 10)
	if limit < 1 {
		limit = 1
	}
	if limit > model.MaxPageSize {
		limit = model.MaxPageSize
	}
	logs, err := h.Store.RecentLogs(c.Request().Context(), limit)
	if err != nil {
		h.Logger.Error().Err(err).Msg("recent logs failed")
		return response.InternalError(c, "failed to fetch recent logs", err.Error())
	}
	if logs == nil {
		logs = []model.LogView{}
	}
	return response.OK(c, map[string]any{"logs": logs}, "")
}

// ExportCSV handles GET /logs/export: the full filtered, sorted set as CSV
// with a download filename hint. Pagination parameters are ignored.
func (h *LogHandler) ExportCSV(c echo.Context) error {
	params, err := searchParams(c)
	if err != nil {
		return response.BadRequest(c, "invalid export parameters", err.Error())
	}
	params.Normalize()

	where, args := search.WhereClause(params)
	order := h.Searcher.OrderClause(params.SortBy, params.SortOrder)
	rows, err := h.Exporter.ExportLogs(c.Request().Context(), where, args, order)
	if err != nil {
		h.Logger.Error().Err(err).Str("principal", principalFrom(c)).Msg("export failed")
		return response.InternalError(c, "export failed", err.Error())
	}

	filename := export.Filename(time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)

	h.Logger.Info().Str("principal", principalFrom(c)).Int("rows", len(rows)).Msg("export request")
	return export.Write(c.Response(), rows)
}

// searchParams binds and validates the shared search/export parameters.
func searchParams(c echo.Context) (model.SearchParams, error) {
	p := model.SearchParams{
		Query:      c.QueryParam("query"),
		CNNID:      c.QueryParam("cnnid"),
		Vendor:     c.QueryParam("vendor"),
		DeviceType: c.QueryParam("device_type"),
		Page:       intParam(c, "page", 1),
		PageSize:   intParam(c, "page_size", model.DefaultPageSize),
		SortBy:     c.QueryParam("sort_by"),
		SortOrder:  c.QueryParam("sort_order"),
	}
	if fields := c.QueryParam("fields"); fields != "" {
		p.Fields = strings.Split(fields, ",")
	}
	if raw := c.QueryParam("severity"); raw != "" {
		sev, err := model.ParseSeverity(raw)
		if err != nil {
			return model.SearchParams{}, err
		}
		p.Severity = sev.String()
	}
	var err error
	if p.StartTime, err = timeParam(c, "start_time"); err != nil {
		return model.SearchParams{}, err
	}
	if p.EndTime, err = timeParam(c, "end_time"); err != nil {
		return model.SearchParams{}, err
	}
	return p, nil
}
