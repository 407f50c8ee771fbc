package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logvault/logvault/internal/model"
	"github.com/logvault/logvault/internal/stats"
)

const logViewColumns = "id, timestamp, message, severity, vendor, cnnid, device_type, product"

// querier is the subset of pgxpool.Pool the repositories run statements on.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LogRepository persists and reads the log corpus and its dimension entities.
type LogRepository struct {
	pool querier
}

// NewLogRepository returns a LogRepository using the given pool.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// GetOrCreateCustomer inserts the customer if missing and returns the row.
// ON CONFLICT DO NOTHING absorbs insert races: when another batch created the
// row first, the insert returns nothing and the re-select wins.
func (r *LogRepository) GetOrCreateCustomer(ctx context.Context, cnnid string) (model.Customer, error) {
	var c model.Customer
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (cnnid) VALUES ($1)
		ON CONFLICT (cnnid) DO NOTHING
		RETURNING id, cnnid, coalesce(name, ''), created_at, updated_at`, cnnid).
		Scan(&c.ID, &c.CNNID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.pool.QueryRow(ctx, `
			SELECT id, cnnid, coalesce(name, ''), created_at, updated_at
			FROM customers WHERE cnnid = $1`, cnnid).
			Scan(&c.ID, &c.CNNID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	}
	if err != nil {
		return model.Customer{}, fmt.Errorf("get or create customer: %w", err)
	}
	return c, nil
}

// GetOrCreateVendor inserts the vendor if missing and returns the row.
// Vendor names are globally unique.
func (r *LogRepository) GetOrCreateVendor(ctx context.Context, name string) (model.Vendor, error) {
	var v model.Vendor
	err := r.pool.QueryRow(ctx, `
		INSERT INTO vendors (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at, updated_at`, name).
		Scan(&v.ID, &v.Name, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.pool.QueryRow(ctx, `
			SELECT id, name, created_at, updated_at
			FROM vendors WHERE name = $1`, name).
			Scan(&v.ID, &v.Name, &v.CreatedAt, &v.UpdatedAt)
	}
	if err != nil {
		return model.Vendor{}, fmt.Errorf("get or create vendor: %w", err)
	}
	return v, nil
}

// GetOrCreateDevice inserts the device if missing and returns the row.
// Devices are unique per (vendor_id, name).
func (r *LogRepository) GetOrCreateDevice(ctx context.Context, name, deviceType string, vendorID int64) (model.Device, error) {
	var d model.Device
	err := r.pool.QueryRow(ctx, `
		INSERT INTO devices (name, type, vendor_id) VALUES ($1, $2, $3)
		ON CONFLICT (vendor_id, name) DO NOTHING
		RETURNING id, name, type, vendor_id, created_at, updated_at`, name, deviceType, vendorID).
		Scan(&d.ID, &d.Name, &d.Type, &d.VendorID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.pool.QueryRow(ctx, `
			SELECT id, name, type, vendor_id, created_at, updated_at
			FROM devices WHERE vendor_id = $1 AND name = $2`, vendorID, name).
			Scan(&d.ID, &d.Name, &d.Type, &d.VendorID, &d.CreatedAt, &d.UpdatedAt)
	}
	if err != nil {
		return model.Device{}, fmt.Errorf("get or create device: %w", err)
	}
	return d, nil
}

// InsertEntries writes one validated batch inside a single transaction using
// COPY. Either every entry lands or none do.
func (r *LogRepository) InsertEntries(ctx context.Context, entries []model.LogEntry) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"logs"},
		[]string{"timestamp", "message", "severity", "device_id", "vendor", "cnnid", "product", "device_type", "city", "batch_id"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{
				e.Timestamp, e.Message, string(e.Severity), e.DeviceID,
				e.Vendor, e.CNNID, e.Product, e.DeviceType, e.City, e.BatchID,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy logs: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(n), nil
}

// CountLogs returns the exact count over the filtered set.
func (r *LogRepository) CountLogs(ctx context.Context, where string, args []any) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM logs "+where, args...).Scan(&total)
	return total, err
}

// SearchLogs returns one page of the filtered, sorted set.
func (r *LogRepository) SearchLogs(ctx context.Context, where string, args []any, order string, limit, offset int) ([]model.LogView, error) {
	query := fmt.Sprintf("SELECT %s FROM logs %s ORDER BY %s LIMIT $%d OFFSET $%d",
		logViewColumns, where, order, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogViews(rows)
}

// ExportLogs returns the full filtered, sorted set without pagination.
func (r *LogRepository) ExportLogs(ctx context.Context, where string, args []any, order string) ([]model.LogView, error) {
	query := fmt.Sprintf("SELECT %s FROM logs %s ORDER BY %s", logViewColumns, where, order)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogViews(rows)
}

// RecentLogs returns the newest entries, newest first.
func (r *LogRepository) RecentLogs(ctx context.Context, limit int) ([]model.LogView, error) {
	query := fmt.Sprintf("SELECT %s FROM logs ORDER BY timestamp DESC, id DESC LIMIT $1", logViewColumns)
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogViews(rows)
}

// VendorCounts groups log counts by vendor within the optional window.
func (r *LogRepository) VendorCounts(ctx context.Context, start, end *time.Time) (map[string]int, error) {
	return r.groupedCounts(ctx, "vendor", start, end)
}

// SeverityCounts groups log counts by severity within the optional window.
func (r *LogRepository) SeverityCounts(ctx context.Context, start, end *time.Time) (map[string]int, error) {
	return r.groupedCounts(ctx, "severity", start, end)
}

func (r *LogRepository) groupedCounts(ctx context.Context, column string, start, end *time.Time) (map[string]int, error) {
	where, args := timeWindow(start, end)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s, count(*) FROM logs %s GROUP BY %s", column, where, column), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// TimeSeriesCounts groups log counts into truncated-timestamp buckets,
// ascending. Truncation happens in UTC regardless of session time zone.
func (r *LogRepository) TimeSeriesCounts(ctx context.Context, start, end time.Time, interval stats.Interval) ([]stats.TimePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc($1, timestamp AT TIME ZONE 'UTC') AS bucket, count(*)
		FROM logs
		WHERE timestamp >= $2 AND timestamp <= $3
		GROUP BY bucket
		ORDER BY bucket`, string(interval), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []stats.TimePoint
	for rows.Next() {
		var pt stats.TimePoint
		if err := rows.Scan(&pt.Bucket, &pt.Count); err != nil {
			return nil, err
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}

// CountLogsSince counts all logs, or those at or after since when non-nil.
func (r *LogRepository) CountLogsSince(ctx context.Context, since *time.Time) (int, error) {
	var total int
	var err error
	if since == nil {
		err = r.pool.QueryRow(ctx, "SELECT count(*) FROM logs").Scan(&total)
	} else {
		err = r.pool.QueryRow(ctx, "SELECT count(*) FROM logs WHERE timestamp >= $1", *since).Scan(&total)
	}
	return total, err
}

func timeWindow(start, end *time.Time) (string, []any) {
	var conds []string
	var args []any
	if start != nil {
		args = append(args, *start)
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if end != nil {
		args = append(args, *end)
		conds = append(conds, fmt.Sprintf("timestamp <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	if len(conds) == 1 {
		return "WHERE " + conds[0], args
	}
	return "WHERE " + conds[0] + " AND " + conds[1], args
}

func scanLogViews(rows pgx.Rows) ([]model.LogView, error) {
	var out []model.LogView
	for rows.Next() {
		var v model.LogView
		var severity string
		if err := rows.Scan(&v.ID, &v.Timestamp, &v.Message, &severity, &v.Vendor, &v.CNNID, &v.DeviceType, &v.Product); err != nil {
			return nil, err
		}
		v.Severity = model.Severity(severity)
		out = append(out, v)
	}
	return out, rows.Err()
}
