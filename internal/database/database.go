// Package database owns the pgx pool and schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/config"
)

// NewPool builds a pgx pool from config. Statements are traced to zerolog;
// when the New Relic app is non-nil its pgx tracer is attached as well.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger, app *newrelic.Application) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	pc.MaxConns = int32(cfg.MaxConns)
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	pc.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetime) * time.Second
	pc.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleTime) * time.Second

	tracers := []pgx.QueryTracer{
		&tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(logger),
			LogLevel: tracelog.LogLevelWarn,
		},
	}
	if app != nil {
		tracers = append(tracers, nrpgx5.NewTracer())
	}
	pc.ConnConfig.Tracer = multitracer.New(tracers...)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
