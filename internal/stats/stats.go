// Package stats computes grouped counts over an optionally time-windowed
// subset of the log corpus: per-vendor, per-severity, and time-bucketed
// series for the dashboard charts.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidInterval marks a request-level interval error, distinguishing it
// from store failures so the transport can answer 400 instead of 500.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a time-series bucket width.
type Interval string

const (
	IntervalDay    Interval = "day"
	IntervalHour   Interval = "hour"
	IntervalMinute Interval = "minute"
)

// DefaultWindow is applied when a time-series request gives no bounds.
const DefaultWindow = 7 * 24 * time.Hour

// ParseInterval validates a raw interval value. Unlike sort columns, an
// invalid interval is a request error, not a silent default.
func ParseInterval(raw string) (Interval, error) {
	switch i := Interval(strings.ToLower(strings.TrimSpace(raw))); i {
	case IntervalDay, IntervalHour, IntervalMinute:
		return i, nil
	default:
		return "", fmt.Errorf("%w %q: must be one of day, hour, minute", ErrInvalidInterval, raw)
	}
}

// BucketKey renders a bucket timestamp in the wire format for this interval.
func (i Interval) BucketKey(t time.Time) string {
	switch i {
	case IntervalHour:
		return t.UTC().Format("2006-01-02 15:00:00")
	case IntervalMinute:
		return t.UTC().Format("2006-01-02 15:04:00")
	default:
		return t.UTC().Format("2006-01-02")
	}
}

// Bucket is one non-empty time-series bucket. Buckets with zero entries are
// omitted (sparse representation).
type Bucket struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// TimePoint is a raw (truncated timestamp, count) pair from the store.
type TimePoint struct {
	Bucket time.Time
	Count  int
}

// DashboardStats are the headline numbers for the overview page.
type DashboardStats struct {
	TotalLogs         int     `json:"total_logs"`
	LogsLast30Days    int     `json:"logs_last_30_days"`
	AverageLogsPerDay float64 `json:"average_logs_per_day"`
}

// Store is the aggregation boundary of the persistence layer.
type Store interface {
	VendorCounts(ctx context.Context, start, end *time.Time) (map[string]int, error)
	SeverityCounts(ctx context.Context, start, end *time.Time) (map[string]int, error)
	TimeSeriesCounts(ctx context.Context, start, end time.Time, interval Interval) ([]TimePoint, error)
	CountLogsSince(ctx context.Context, since *time.Time) (int, error)
}

// Engine answers the aggregation views. All comparisons are UTC-normalized.
type Engine struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine returns an Engine over the given store.
func NewEngine(store Store, logger zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// VendorCounts groups log counts by vendor within the optional window.
func (e *Engine) VendorCounts(ctx context.Context, start, end *time.Time) (map[string]int, error) {
	counts, err := e.store.VendorCounts(ctx, normalize(start), normalize(end))
	if err != nil {
		return nil, fmt.Errorf("vendor counts: %w", err)
	}
	return counts, nil
}

// SeverityDistribution groups log counts by severity within the optional window.
func (e *Engine) SeverityDistribution(ctx context.Context, start, end *time.Time) (map[string]int, error) {
	counts, err := e.store.SeverityCounts(ctx, normalize(start), normalize(end))
	if err != nil {
		return nil, fmt.Errorf("severity distribution: %w", err)
	}
	return counts, nil
}

// TimeSeries returns non-empty buckets of the given width, ascending by
// bucket key. When neither bound is supplied the window defaults to the last
// seven days; a single missing bound is filled relative to the other.
func (e *Engine) TimeSeries(ctx context.Context, start, end *time.Time, rawInterval string) ([]Bucket, error) {
	interval, err := ParseInterval(rawInterval)
	if err != nil {
		return nil, err
	}

	var from, to time.Time
	switch {
	case start == nil && end == nil:
		to = e.now().UTC()
		from = to.Add(-DefaultWindow)
	case start == nil:
		to = end.UTC()
		from = to.Add(-DefaultWindow)
	case end == nil:
		from = start.UTC()
		to = e.now().UTC()
	default:
		from = start.UTC()
		to = end.UTC()
	}

	points, err := e.store.TimeSeriesCounts(ctx, from, to, interval)
	if err != nil {
		return nil, fmt.Errorf("time series: %w", err)
	}
	buckets := make([]Bucket, 0, len(points))
	for _, pt := range points {
		buckets = append(buckets, Bucket{Bucket: interval.BucketKey(pt.Bucket), Count: pt.Count})
	}
	return buckets, nil
}

// Dashboard returns the headline totals shown on the overview page.
func (e *Engine) Dashboard(ctx context.Context) (DashboardStats, error) {
	total, err := e.store.CountLogsSince(ctx, nil)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard total: %w", err)
	}
	since := e.now().UTC().Add(-30 * 24 * time.Hour)
	recent, err := e.store.CountLogsSince(ctx, &since)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard window: %w", err)
	}
	return DashboardStats{
		TotalLogs:         total,
		LogsLast30Days:    recent,
		AverageLogsPerDay: float64(recent) / 30,
	}, nil
}

func normalize(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
