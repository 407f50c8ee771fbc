package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source is a registered log collector definition (e.g. an rsyslog relay or
// an HTTP forwarder). Sources are bookkeeping for operators; ingestion itself
// does not require one.
type Source struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Type          string          `db:"type" json:"type"`
	Configuration json.RawMessage `db:"configuration" json:"configuration"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// SourceTypes are the collector kinds the backend knows how to describe.
var SourceTypes = []string{"syslog", "http", "file", "snmp-trap"}
