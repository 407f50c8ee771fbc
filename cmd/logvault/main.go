package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/config"
	"github.com/logvault/logvault/internal/database"
	"github.com/logvault/logvault/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load config")
	}

	logger := zerolog.New(os.Stderr).
		Level(cfg.Observability.Level()).
		With().
		Timestamp().
		Str("service", cfg.Observability.ServiceName).
		Str("env", cfg.Observability.Environment).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.URL()); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	var nrApp *newrelic.Application
	if cfg.Observability.APMEnabled() {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.Observability.ServiceName),
			newrelic.ConfigLicense(cfg.Observability.LicenseKey),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("new relic disabled")
			nrApp = nil
		}
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger, nrApp)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	srv := server.New(cfg, pool, logger, nrApp)
	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
