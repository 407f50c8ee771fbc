package model

import (
	"time"

	"github.com/google/uuid"
)

// NoMessage is stored when a payload carries no message field.
const NoMessage = "No message provided"

// LogEntry is a persisted log record. Vendor, CNNID, Product and DeviceType
// are denormalized copies of the dimension attributes so the hot query path
// never joins. Entries are immutable once written.
type LogEntry struct {
	ID         int64     `db:"id" json:"id"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	Message    string    `db:"message" json:"message"`
	Severity   Severity  `db:"severity" json:"severity"`
	DeviceID   int64     `db:"device_id" json:"device_id"`
	Vendor     string    `db:"vendor" json:"vendor"`
	CNNID      string    `db:"cnnid" json:"cnnid"`
	Product    string    `db:"product" json:"product"`
	DeviceType string    `db:"device_type" json:"device_type"`
	City       string    `db:"city" json:"city,omitempty"`
	BatchID    uuid.UUID `db:"batch_id" json:"batch_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// LogView is the projection returned by search, recent and export.
type LogView struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	Vendor     string    `json:"vendor"`
	CNNID      string    `json:"cnnid"`
	DeviceType string    `json:"device_type"`
	Product    string    `json:"product"`
}

// EntryFailure describes one payload entry that failed semantic validation.
type EntryFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// IngestResult reports the outcome of one ingestion batch.
type IngestResult struct {
	BatchID  uuid.UUID      `json:"batch_id"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	Message  string         `json:"message"`
	Failures []EntryFailure `json:"failures,omitempty"`
}
