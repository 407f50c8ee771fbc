package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	vendors    map[string]int
	severities map[string]int
	points     []TimePoint
	totals     map[string]int // keyed "all" / "since"

	gotStart    *time.Time
	gotEnd      *time.Time
	gotFrom     time.Time
	gotTo       time.Time
	gotInterval Interval
}

func (m *memStore) VendorCounts(_ context.Context, start, end *time.Time) (map[string]int, error) {
	m.gotStart, m.gotEnd = start, end
	return m.vendors, nil
}

func (m *memStore) SeverityCounts(_ context.Context, start, end *time.Time) (map[string]int, error) {
	m.gotStart, m.gotEnd = start, end
	return m.severities, nil
}

func (m *memStore) TimeSeriesCounts(_ context.Context, start, end time.Time, interval Interval) ([]TimePoint, error) {
	m.gotFrom, m.gotTo, m.gotInterval = start, end, interval
	return m.points, nil
}

func (m *memStore) CountLogsSince(_ context.Context, since *time.Time) (int, error) {
	if since == nil {
		return m.totals["all"], nil
	}
	return m.totals["since"], nil
}

func testEngine(store *memStore) *Engine {
	e := NewEngine(store, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestParseInterval(t *testing.T) {
	for _, raw := range []string{"day", "HOUR", " minute "} {
		_, err := ParseInterval(raw)
		require.NoError(t, err, "input %q", raw)
	}
	for _, raw := range []string{"", "week", "month", "30m"} {
		_, err := ParseInterval(raw)
		require.Error(t, err, "input %q", raw)
		require.True(t, errors.Is(err, ErrInvalidInterval))
	}
}

func TestBucketKey(t *testing.T) {
	ts := time.Date(2026, 8, 15, 9, 42, 17, 0, time.UTC)
	require.Equal(t, "2026-08-15", IntervalDay.BucketKey(ts))
	require.Equal(t, "2026-08-15 09:00:00", IntervalHour.BucketKey(ts))
	require.Equal(t, "2026-08-15 09:42:00", IntervalMinute.BucketKey(ts))
}

func TestVendorCounts(t *testing.T) {
	store := &memStore{vendors: map[string]int{"Cisco": 3, "Fortinet": 1}}
	e := testEngine(store)

	got, err := e.VendorCounts(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"Cisco": 3, "Fortinet": 1}, got)
}

func TestSeverityDistribution(t *testing.T) {
	store := &memStore{severities: map[string]int{"low": 1, "medium": 1, "high": 1, "critical": 1}}
	e := testEngine(store)

	loc := time.FixedZone("CET", 3600)
	start := time.Date(2026, 8, 1, 1, 0, 0, 0, loc)
	got, err := e.SeverityDistribution(context.Background(), &start, nil)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, time.UTC, store.gotStart.Location())
	require.Nil(t, store.gotEnd)
}

func TestTimeSeriesDefaultWindow(t *testing.T) {
	store := &memStore{points: []TimePoint{
		{Bucket: time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC), Count: 2},
		{Bucket: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), Count: 5},
	}}
	e := testEngine(store)

	got, err := e.TimeSeries(context.Background(), nil, nil, "day")
	require.NoError(t, err)
	require.Equal(t, []Bucket{
		{Bucket: "2026-08-14", Count: 2},
		{Bucket: "2026-08-15", Count: 5},
	}, got)

	require.Equal(t, time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC), store.gotTo)
	require.Equal(t, store.gotTo.Add(-DefaultWindow), store.gotFrom)
	require.Equal(t, IntervalDay, store.gotInterval)
}

func TestTimeSeriesFillsMissingBound(t *testing.T) {
	store := &memStore{}
	e := testEngine(store)

	end := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	_, err := e.TimeSeries(context.Background(), nil, &end, "hour")
	require.NoError(t, err)
	require.Equal(t, end, store.gotTo)
	require.Equal(t, end.Add(-DefaultWindow), store.gotFrom)

	start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	_, err = e.TimeSeries(context.Background(), &start, nil, "hour")
	require.NoError(t, err)
	require.Equal(t, start, store.gotFrom)
	require.Equal(t, time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC), store.gotTo)
}

func TestTimeSeriesInvalidInterval(t *testing.T) {
	e := testEngine(&memStore{})

	_, err := e.TimeSeries(context.Background(), nil, nil, "fortnight")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidInterval))
}

func TestDashboard(t *testing.T) {
	store := &memStore{totals: map[string]int{"all": 900, "since": 600}}
	e := testEngine(store)

	got, err := e.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 900, got.TotalLogs)
	require.Equal(t, 600, got.LogsLast30Days)
	require.InDelta(t, 20.0, got.AverageLogsPerDay, 1e-9)
}
