package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/logvault/logvault/internal/stats"
)

type fakeAggregator struct {
	vendors    map[string]int
	severities map[string]int
	buckets    []stats.Bucket
	dashboard  stats.DashboardStats

	gotStart    *time.Time
	gotEnd      *time.Time
	gotInterval string
}

func (f *fakeAggregator) VendorCounts(_ context.Context, start, end *time.Time) (map[string]int, error) {
	f.gotStart, f.gotEnd = start, end
	return f.vendors, nil
}

func (f *fakeAggregator) SeverityDistribution(_ context.Context, start, end *time.Time) (map[string]int, error) {
	f.gotStart, f.gotEnd = start, end
	return f.severities, nil
}

func (f *fakeAggregator) TimeSeries(_ context.Context, start, end *time.Time, interval string) ([]stats.Bucket, error) {
	f.gotStart, f.gotEnd, f.gotInterval = start, end, interval
	if _, err := stats.ParseInterval(interval); err != nil {
		return nil, err
	}
	return f.buckets, nil
}

func (f *fakeAggregator) Dashboard(context.Context) (stats.DashboardStats, error) {
	return f.dashboard, nil
}

func TestVendorCounts(t *testing.T) {
	agg := &fakeAggregator{vendors: map[string]int{"Cisco": 3}}
	h := &StatsHandler{Stats: agg, Logger: zerolog.Nop()}

	c, rec := newContext(t, http.MethodGet, "/api/v1/logs/vendor-counts?start_date=2026-08-01&end_date=2026-08-31", "")
	require.NoError(t, h.VendorCounts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, agg.gotStart)
	require.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *agg.gotStart)
	require.NotNil(t, agg.gotEnd)

	var body struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]int{"Cisco": 3}, body.Data)
}

func TestSeverityDistributionAcceptsSearchParamNames(t *testing.T) {
	agg := &fakeAggregator{severities: map[string]int{"high": 2}}
	h := &StatsHandler{Stats: agg, Logger: zerolog.Nop()}

	c, rec := newContext(t, http.MethodGet, "/api/v1/logs/severity-distribution?start_time=2026-08-01T00:00:00Z", "")
	require.NoError(t, h.SeverityDistribution(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, agg.gotStart)
}

func TestTimeSeries(t *testing.T) {
	agg := &fakeAggregator{buckets: []stats.Bucket{{Bucket: "2026-08-15", Count: 5}}}
	h := &StatsHandler{Stats: agg, Logger: zerolog.Nop()}

	c, rec := newContext(t, http.MethodGet, "/api/v1/logs/time-series?interval=day", "")
	require.NoError(t, h.TimeSeries(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "day", agg.gotInterval)
	require.Contains(t, rec.Body.String(), `"2026-08-15"`)
}

func TestTimeSeriesInvalidIntervalIs400(t *testing.T) {
	h := &StatsHandler{Stats: &fakeAggregator{}, Logger: zerolog.Nop()}

	c, rec := newContext(t, http.MethodGet, "/api/v1/logs/time-series?interval=fortnight", "")
	require.NoError(t, h.TimeSeries(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeSeriesBadWindowIs400(t *testing.T) {
	h := &StatsHandler{Stats: &fakeAggregator{}, Logger: zerolog.Nop()}

	c, rec := newContext(t, http.MethodGet, "/api/v1/logs/time-series?interval=day&start_date=not-a-date", "")
	require.NoError(t, h.TimeSeries(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	agg := &fakeAggregator{dashboard: stats.DashboardStats{
		TotalLogs:         900,
		LogsLast30Days:    600,
		AverageLogsPerDay: 20,
	}}
	h := &StatsHandler{Stats: agg, Logger: zerolog.Nop()}

	c, rec := newContext(t, http.MethodGet, "/api/v1/dashboard/stats", "")
	require.NoError(t, h.Dashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total_logs":900`)
}
