// Package search builds filtered, sorted, paginated result sets over the log
// corpus. It owns the sort-column whitelist and the pagination arithmetic;
// SQL execution stays in the repository.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/model"
)

// sortColumns is the fixed whitelist of sortable columns. Anything else
// falls back to timestamp.
var sortColumns = map[string]struct{}{
	"timestamp":   {},
	"severity":    {},
	"message":     {},
	"vendor":      {},
	"cnnid":       {},
	"device_type": {},
	"product":     {},
}

// textColumns are the denormalized columns free-text search may widen to
// when an explicit field list is given.
var textColumns = map[string]struct{}{
	"message":     {},
	"vendor":      {},
	"cnnid":       {},
	"device_type": {},
	"severity":    {},
	"product":     {},
}

// SortableColumns returns the whitelist, for the search-fields endpoint.
func SortableColumns() []string {
	return []string{"timestamp", "severity", "message", "vendor", "cnnid", "device_type", "product"}
}

// WhereClause renders the AND of all active filters as a SQL fragment with
// positional placeholders starting at $1. Returns "" when nothing filters.
//
// Free text matches message only; a whitelisted fields list widens the match
// across those columns. Vendor and device_type match case-insensitively,
// cnnid and severity exactly (severity lowercased at the boundary).
func WhereClause(p model.SearchParams) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Query != "" {
		pattern := "%" + p.Query + "%"
		fields := whitelistedFields(p.Fields)
		if len(fields) == 0 {
			conds = append(conds, "message ILIKE "+arg(pattern))
		} else {
			ors := make([]string, 0, len(fields))
			for _, f := range fields {
				ors = append(ors, f+" ILIKE "+arg(pattern))
			}
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if p.StartTime != nil {
		conds = append(conds, "timestamp >= "+arg(*p.StartTime))
	}
	if p.EndTime != nil {
		conds = append(conds, "timestamp <= "+arg(*p.EndTime))
	}
	if p.CNNID != "" {
		conds = append(conds, "cnnid = "+arg(p.CNNID))
	}
	if p.Vendor != "" {
		conds = append(conds, "lower(vendor) = "+arg(strings.ToLower(p.Vendor)))
	}
	if p.DeviceType != "" {
		conds = append(conds, "lower(device_type) = "+arg(strings.ToLower(p.DeviceType)))
	}
	if p.Severity != "" {
		conds = append(conds, "severity = "+arg(strings.ToLower(p.Severity)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func whitelistedFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if _, ok := textColumns[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Store is the persistence boundary the engine queries through.
type Store interface {
	SearchLogs(ctx context.Context, where string, args []any, order string, limit, offset int) ([]model.LogView, error)
	CountLogs(ctx context.Context, where string, args []any) (int, error)
}

// Engine answers search requests with exact pre-pagination totals.
type Engine struct {
	store  Store
	logger zerolog.Logger
}

// NewEngine returns an Engine over the given store.
func NewEngine(store Store, logger zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// OrderClause validates the sort column against the whitelist and renders the
// ORDER BY fragment. An unknown column silently falls back to timestamp
// (logged); id is appended as a deterministic tiebreaker so pagination stays
// stable when sort keys collide.
func (e *Engine) OrderClause(sortBy, sortOrder string) string {
	col := strings.ToLower(sortBy)
	if _, ok := sortColumns[col]; !ok {
		e.logger.Warn().Str("sort_by", sortBy).Msg("invalid sort column, falling back to timestamp")
		col = "timestamp"
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

// Search runs one paginated query: exact count over the filtered set, then
// the requested page.
func (e *Engine) Search(ctx context.Context, p model.SearchParams) (model.PaginatedResult, error) {
	p.Normalize()

	where, args := WhereClause(p)
	total, err := e.store.CountLogs(ctx, where, args)
	if err != nil {
		return model.PaginatedResult{}, fmt.Errorf("count logs: %w", err)
	}

	items := []model.LogView{}
	if total > 0 {
		order := e.OrderClause(p.SortBy, p.SortOrder)
		items, err = e.store.SearchLogs(ctx, where, args, order, p.PageSize, p.Offset())
		if err != nil {
			return model.PaginatedResult{}, fmt.Errorf("search logs: %w", err)
		}
	}
	return model.NewPaginatedResult(items, total, p.Page, p.PageSize), nil
}
