package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/logvault/logvault/internal/model"
)

type memEntryStore struct {
	entries []model.LogEntry
	err     error
}

func (m *memEntryStore) InsertEntries(_ context.Context, entries []model.LogEntry) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.entries = append(m.entries, entries...)
	return len(entries), nil
}

func testPipeline(store *memEntryStore, strict bool) *Pipeline {
	p := NewPipeline(testResolver(newMemDimensions()), store, nil, zerolog.Nop(), strict)
	p.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestDecodeBatch(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		entries, err := DecodeBatch([]byte(`[{"message":"a"},{"message":"b"}]`))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, "b", entries[1].Message)
	})

	t.Run("ndjson", func(t *testing.T) {
		entries, err := DecodeBatch([]byte("{\"message\":\"a\"}\n\n{\"message\":\"b\"}\n"))
		require.NoError(t, err)
		require.Len(t, entries, 2)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := DecodeBatch([]byte(`[{"message":`))
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeBatch([]byte("  \n "))
		require.Error(t, err)
	})

	t.Run("empty array", func(t *testing.T) {
		_, err := DecodeBatch([]byte(`[]`))
		require.Error(t, err)
	})

	t.Run("null", func(t *testing.T) {
		_, err := DecodeBatch([]byte(`null`))
		require.Error(t, err)
	})
}

func TestIngestEmptyArrayIsBadBatch(t *testing.T) {
	p := testPipeline(&memEntryStore{}, false)

	for _, body := range []string{`[]`, `null`} {
		_, err := p.Ingest(context.Background(), []byte(body))
		require.Error(t, err, "body %q", body)
		require.True(t, errors.Is(err, ErrBadBatch), "body %q", body)
	}
}

func TestIngestHappyPath(t *testing.T) {
	store := &memEntryStore{}
	p := testPipeline(store, false)

	body := []byte(`[{"timestamp":"2026-08-15T10:30:00Z","message":"login failed","severity":"high","cnnid":"CNN001","vendor":"Cisco","product":"ASA","device_type":"Firewall","city":"Austin"}]`)
	result, err := p.Ingest(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, 1, result.Accepted)
	require.Equal(t, 0, result.Rejected)
	require.Equal(t, "Successfully ingested 1 log entries", result.Message)
	require.NotEqual(t, result.BatchID.String(), "00000000-0000-0000-0000-000000000000")

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	require.Equal(t, "login failed", e.Message)
	require.Equal(t, model.SeverityHigh, e.Severity)
	require.Equal(t, "Cisco", e.Vendor)
	require.Equal(t, "CNN001", e.CNNID)
	require.Equal(t, "ASA", e.Product)
	require.Equal(t, "Firewall", e.DeviceType)
	require.Equal(t, "Austin", e.City)
	require.Equal(t, result.BatchID, e.BatchID)
	require.NotZero(t, e.DeviceID)
}

func TestIngestDefaults(t *testing.T) {
	store := &memEntryStore{}
	p := testPipeline(store, false)

	result, err := p.Ingest(context.Background(), []byte(`[{"severity":"low","cnnid":"CNN001"}]`))
	require.NoError(t, err)
	require.Equal(t, 1, result.Accepted)

	e := store.entries[0]
	require.Equal(t, model.NoMessage, e.Message)
	require.Equal(t, time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC), e.Timestamp)
	require.Equal(t, model.UnknownVendor, e.Vendor)
	require.Equal(t, model.UnknownProduct, e.Product)
	require.Equal(t, model.UnknownDeviceType, e.DeviceType)
}

func TestIngestNaiveTimestampIsUTC(t *testing.T) {
	store := &memEntryStore{}
	p := testPipeline(store, false)

	_, err := p.Ingest(context.Background(), []byte(`[{"timestamp":"2026-08-15 10:30:00","severity":"low","cnnid":"CNN001"}]`))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC), store.entries[0].Timestamp)
}

func TestIngestLenientSkipsBadEntries(t *testing.T) {
	store := &memEntryStore{}
	p := testPipeline(store, false)

	body := []byte(`[
		{"severity":"low","cnnid":"CNN001","message":"ok"},
		{"severity":"bogus","cnnid":"CNN001","message":"bad severity"},
		{"severity":"high","cnnid":"CNN001","timestamp":"not-a-time"},
		{"severity":"critical","cnnid":"CNN001","message":"also ok"}
	]`)
	result, err := p.Ingest(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, 2, result.Accepted)
	require.Equal(t, 2, result.Rejected)
	require.Len(t, result.Failures, 2)
	require.Equal(t, 1, result.Failures[0].Index)
	require.Equal(t, 2, result.Failures[1].Index)
	require.Len(t, store.entries, 2)
}

func TestIngestStrictRejectsBatch(t *testing.T) {
	store := &memEntryStore{}
	p := testPipeline(store, true)

	body := []byte(`[
		{"severity":"low","cnnid":"CNN001","message":"ok"},
		{"severity":"bogus","cnnid":"CNN001"}
	]`)
	_, err := p.Ingest(context.Background(), body)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBadBatch))
	require.Empty(t, store.entries)
}

func TestIngestMalformedPayloadIsBadBatch(t *testing.T) {
	p := testPipeline(&memEntryStore{}, false)

	_, err := p.Ingest(context.Background(), []byte(`not json at all`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBadBatch))
}

func TestIngestStoreFailureIsNotBadBatch(t *testing.T) {
	store := &memEntryStore{err: errors.New("connection reset")}
	p := testPipeline(store, false)

	_, err := p.Ingest(context.Background(), []byte(`[{"severity":"low","cnnid":"CNN001"}]`))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrBadBatch))
}
