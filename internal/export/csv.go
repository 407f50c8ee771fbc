// Package export renders a filtered, sorted log result set as CSV for
// download. Pagination is deliberately absent: the full filtered set is
// written, and any size cap is the caller's concern.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/logvault/logvault/internal/model"
)

// Header is the CSV header row, in column order.
var Header = []string{"timestamp", "severity", "message", "vendor", "cnnid", "device_type", "product"}

// Store fetches the full filtered, sorted result set (no limit/offset).
type Store interface {
	ExportLogs(ctx context.Context, where string, args []any, order string) ([]model.LogView, error)
}

// Write renders header plus one row per entry. encoding/csv owns the
// quoting, so delimiters and quotes inside field values round-trip.
func Write(w io.Writer, rows []model.LogView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Severity.String(),
			r.Message,
			r.Vendor,
			r.CNNID,
			r.DeviceType,
			r.Product,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename returns the download filename hint with a generation timestamp.
func Filename(now time.Time) string {
	return "logs_export_" + now.UTC().Format("20060102_150405") + ".csv"
}
