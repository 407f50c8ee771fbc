package handler

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/response"
	"github.com/logvault/logvault/internal/stats"
)

// Aggregator answers the aggregation views.
type Aggregator interface {
	VendorCounts(ctx context.Context, start, end *time.Time) (map[string]int, error)
	SeverityDistribution(ctx context.Context, start, end *time.Time) (map[string]int, error)
	TimeSeries(ctx context.Context, start, end *time.Time, interval string) ([]stats.Bucket, error)
	Dashboard(ctx context.Context) (stats.DashboardStats, error)
}

// StatsHandler serves the aggregation endpoints.
type StatsHandler struct {
	Stats  Aggregator
	Logger zerolog.Logger
}

// VendorCounts handles GET /logs/vendor-counts.
func (h *StatsHandler) VendorCounts(c echo.Context) error {
	start, end, err := windowParams(c)
	if err != nil {
		return response.BadRequest(c, "invalid time range", err.Error())
	}
	counts, err := h.Stats.VendorCounts(c.Request().Context(), start, end)
	if err != nil {
		h.Logger.Error().Err(err).Msg("vendor counts failed")
		return response.InternalError(c, "failed to compute vendor counts", err.Error())
	}
	return response.OK(c, counts, "")
}

// SeverityDistribution handles GET /logs/severity-distribution.
func (h *StatsHandler) SeverityDistribution(c echo.Context) error {
	start, end, err := windowParams(c)
	if err != nil {
		return response.BadRequest(c, "invalid time range", err.Error())
	}
	counts, err := h.Stats.SeverityDistribution(c.Request().Context(), start, end)
	if err != nil {
		h.Logger.Error().Err(err).Msg("severity distribution failed")
		return response.InternalError(c, "failed to compute severity distribution", err.Error())
	}
	return response.OK(c, counts, "")
}

// TimeSeries handles GET /logs/time-series?interval=day|hour|minute. An
// invalid interval is a client error, unlike the silent sort fallback on
// search.
func (h *StatsHandler) TimeSeries(c echo.Context) error {
	start, end, err := windowParams(c)
	if err != nil {
		return response.BadRequest(c, "invalid time range", err.Error())
	}
	buckets, err := h.Stats.TimeSeries(c.Request().Context(), start, end, c.QueryParam("interval"))
	if err != nil {
		if errors.Is(err, stats.ErrInvalidInterval) {
			return response.BadRequest(c, "invalid interval", err.Error())
		}
		h.Logger.Error().Err(err).Msg("time series failed")
		return response.InternalError(c, "failed to compute time series", err.Error())
	}
	return response.OK(c, buckets, "")
}

// Dashboard handles GET /dashboard/stats.
func (h *StatsHandler) Dashboard(c echo.Context) error {
	s, err := h.Stats.Dashboard(c.Request().Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("dashboard stats failed")
		return response.InternalError(c, "failed to compute dashboard stats", err.Error())
	}
	return response.OK(c, s, "")
}

// windowParams binds the optional start_date/end_date pair, also accepting
// the start_time/end_time names the search endpoint uses.
func windowParams(c echo.Context) (start, end *time.Time, err error) {
	for _, name := range []string{"start_date", "start_time"} {
		if start, err = timeParam(c, name); err != nil {
			return nil, nil, err
		} else if start != nil {
			break
		}
	}
	for _, name := range []string{"end_date", "end_time"} {
		if end, err = timeParam(c, name); err != nil {
			return nil, nil, err
		} else if end != nil {
			break
		}
	}
	return start, end, nil
}
