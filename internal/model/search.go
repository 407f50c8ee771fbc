package model

import "time"

// Pagination bounds. PageSize is clamped, never rejected, mirroring the
// behaviour the search API has always had.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSortBy   = "timestamp"
)

// SearchParams is the ephemeral search request. Zero values mean "no filter".
type SearchParams struct {
	Query      string     `query:"query"`
	Fields     []string   `query:"fields"`
	StartTime  *time.Time `query:"start_time"`
	EndTime    *time.Time `query:"end_time"`
	CNNID      string     `query:"cnnid"`
	Vendor     string     `query:"vendor"`
	DeviceType string     `query:"device_type"`
	Severity   string     `query:"severity"`
	Page       int        `query:"page"`
	PageSize   int        `query:"page_size"`
	SortBy     string     `query:"sort_by"`
	SortOrder  string     `query:"sort_order"`
}

// Normalize clamps pagination into range and fills sort defaults.
// Sort column validation lives in the query engine, not here.
func (p *SearchParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.SortBy == "" {
		p.SortBy = DefaultSortBy
	}
	if p.StartTime != nil {
		t := p.StartTime.UTC()
		p.StartTime = &t
	}
	if p.EndTime != nil {
		t := p.EndTime.UTC()
		p.EndTime = &t
	}
}

// Offset returns the row offset for the current page.
func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginatedResult is one page of search results plus the exact
// pre-pagination total.
type PaginatedResult struct {
	Items      []LogView `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// NewPaginatedResult computes total_pages as ceil(total/pageSize).
// A zero total yields zero pages; pageSize is floored at 1 so the
// division can never blow up on a hostile request.
func NewPaginatedResult(items []LogView, total, page, pageSize int) PaginatedResult {
	if pageSize < 1 {
		pageSize = 1
	}
	if items == nil {
		items = []LogView{}
	}
	return PaginatedResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
