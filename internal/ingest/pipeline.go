package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/model"
)

// ErrBadBatch marks a client-caused batch rejection (malformed payload, or a
// strict-mode semantic failure), distinguishing it from store failures.
var ErrBadBatch = errors.New("bad batch")

// RawEntry is one log object as devices send it. Every field may be absent;
// defaulting and validation happen in the pipeline.
type RawEntry struct {
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	CNNID      string `json:"cnnid"`
	Vendor     string `json:"vendor"`
	Product    string `json:"product"`
	DeviceType string `json:"device_type"`
	City       string `json:"city"`
}

// timestampLayouts are the accepted wire formats. Layouts without a zone are
// interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// DecodeBatch parses a raw request body into entries. Both a single JSON
// array and newline-delimited JSON objects are accepted, sniffed by
// attempting the array parse first. Malformed JSON fails the whole batch.
func DecodeBatch(raw []byte) ([]RawEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty batch")
	}

	var entries []RawEntry
	if err := json.Unmarshal(trimmed, &entries); err == nil {
		// "[]" and "null" both decode cleanly to nothing
		if len(entries) == 0 {
			return nil, fmt.Errorf("batch contains no entries")
		}
		return entries, nil
	}

	for i, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e RawEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("malformed JSON on line %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("batch contains no entries")
	}
	return entries, nil
}

// EntryStore persists a batch of validated entries in one transaction.
type EntryStore interface {
	InsertEntries(ctx context.Context, entries []model.LogEntry) (int, error)
}

// Archiver uploads an accepted batch to cold storage. Archival is
// best-effort and never fails an ingest.
type Archiver interface {
	PutBatch(ctx context.Context, batchID uuid.UUID, entries []model.LogEntry) (string, error)
}

// Pipeline normalizes raw batches into log entries and persists them.
//
// In lenient mode (the default) an entry that fails semantic validation is
// skipped and reported in the result; in strict mode the first bad entry
// rejects the whole batch. Parse-level failures always reject the batch.
type Pipeline struct {
	resolver *Resolver
	store    EntryStore
	archiver Archiver
	logger   zerolog.Logger
	strict   bool
	now      func() time.Time
}

// NewPipeline builds a Pipeline. strict selects batch-level rejection on the
// first semantically invalid entry. archiver may be nil.
func NewPipeline(resolver *Resolver, store EntryStore, archiver Archiver, logger zerolog.Logger, strict bool) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		store:    store,
		archiver: archiver,
		logger:   logger,
		strict:   strict,
		now:      time.Now,
	}
}

// Ingest decodes, validates and persists one batch. The returned error is
// non-nil only for batch-level failures (malformed payload, strict-mode
// rejection, store failure); per-entry failures are reported in the result.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) (model.IngestResult, error) {
	rawEntries, err := DecodeBatch(raw)
	if err != nil {
		return model.IngestResult{}, fmt.Errorf("%w: %v", ErrBadBatch, err)
	}

	batchID := uuid.New()
	result := model.IngestResult{BatchID: batchID}
	dims := map[string]Resolved{}
	accepted := make([]model.LogEntry, 0, len(rawEntries))

	for i, re := range rawEntries {
		entry, err := p.normalize(re, batchID)
		if err == nil {
			key := re.CNNID + "\x00" + re.Vendor + "\x00" + re.Product + "\x00" + re.DeviceType
			resolved, ok := dims[key]
			if !ok {
				resolved, err = p.resolver.Resolve(ctx, re.CNNID, re.Vendor, re.Product, re.DeviceType)
				if err == nil {
					dims[key] = resolved
				}
			}
			if err == nil {
				entry.DeviceID = resolved.Device.ID
				entry.Vendor = resolved.Vendor.Name
				entry.CNNID = resolved.Customer.CNNID
				entry.Product = resolved.Device.Name
				entry.DeviceType = resolved.Device.Type
				accepted = append(accepted, entry)
				continue
			}
		}

		if p.strict {
			return model.IngestResult{}, fmt.Errorf("%w: entry %d: %v", ErrBadBatch, i, err)
		}
		p.logger.Warn().Int("entry", i).Err(err).Msg("skipping invalid log entry")
		result.Rejected++
		result.Failures = append(result.Failures, model.EntryFailure{Index: i, Reason: err.Error()})
	}

	if len(accepted) > 0 {
		n, err := p.store.InsertEntries(ctx, accepted)
		if err != nil {
			return model.IngestResult{}, fmt.Errorf("persist batch %s: %w", batchID, err)
		}
		result.Accepted = n
		p.archive(batchID, accepted)
	}

	result.Message = fmt.Sprintf("Successfully ingested %d log entries", result.Accepted)
	p.logger.Info().
		Stringer("batch_id", batchID).
		Int("accepted", result.Accepted).
		Int("rejected", result.Rejected).
		Msg("batch ingested")
	return result, nil
}

// archive uploads the accepted batch in the background. Failures are logged,
// never surfaced: the entries are already committed.
func (p *Pipeline) archive(batchID uuid.UUID, entries []model.LogEntry) {
	if p.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		key, err := p.archiver.PutBatch(ctx, batchID, entries)
		if err != nil {
			p.logger.Error().Stringer("batch_id", batchID).Err(err).Msg("batch archive failed")
			return
		}
		p.logger.Debug().Stringer("batch_id", batchID).Str("key", key).Msg("batch archived")
	}()
}

// normalize applies the per-entry defaulting and validation policy:
// absent timestamp defaults to now, absent message to a sentinel, while a
// present-but-unparseable timestamp or an unknown severity is an error.
func (p *Pipeline) normalize(re RawEntry, batchID uuid.UUID) (model.LogEntry, error) {
	ts := p.now().UTC()
	if re.Timestamp != "" {
		parsed, err := parseTimestamp(re.Timestamp)
		if err != nil {
			return model.LogEntry{}, err
		}
		ts = parsed
	}

	msg := re.Message
	if msg == "" {
		msg = model.NoMessage
	}

	sev, err := model.ParseSeverity(re.Severity)
	if err != nil {
		return model.LogEntry{}, err
	}

	return model.LogEntry{
		Timestamp: ts,
		Message:   msg,
		Severity:  sev,
		City:      re.City,
		BatchID:   batchID,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
