package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	nrecho "github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/logvault/logvault/internal/config"
	"github.com/logvault/logvault/internal/handler"
	"github.com/logvault/logvault/internal/ingest"
	"github.com/logvault/logvault/internal/repository"
	"github.com/logvault/logvault/internal/response"
	"github.com/logvault/logvault/internal/search"
	"github.com/logvault/logvault/internal/stats"
	"github.com/logvault/logvault/internal/storage"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	logger zerolog.Logger
}

// New builds the Echo server, wires the engines over the repositories and
// registers routes. Caller must provide a non-nil pool.
func New(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger, nrApp *newrelic.Application) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	e.Use(middleware.Recover(), middleware.RequestID())
	if nrApp != nil {
		e.Use(nrecho.Middleware(nrApp))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
	}))
	e.Use(requestLogger(logger))
	e.Use(principalMiddleware())

	logRepo := repository.NewLogRepository(pool)
	srcRepo := repository.NewSourceRepository(pool)

	var archiver ingest.Archiver
	archiveClient, err := storage.NewArchiveClient(cfg.Archive)
	if err != nil {
		logger.Warn().Err(err).Msg("archive client unavailable, batch archival disabled")
		archiveClient = nil
	}
	if archiveClient != nil {
		if err := archiveClient.EnsureBucket(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("archive bucket check failed, uploads may fail")
		}
		archiver = archiveClient
		logger.Info().Msg("batch archival enabled")
	}

	resolver := ingest.NewResolver(logRepo, logger)
	pipeline := ingest.NewPipeline(resolver, logRepo, archiver, logger, cfg.Ingest.Strict)
	searchEngine := search.NewEngine(logRepo, logger)
	statsEngine := stats.NewEngine(logRepo, logger)

	logH := &handler.LogHandler{
		Pipeline: pipeline,
		Searcher: searchEngine,
		Exporter: logRepo,
		Store:    logRepo,
		Logger:   logger,
	}
	statsH := &handler.StatsHandler{Stats: statsEngine, Logger: logger}
	srcH := &handler.SourceHandler{Repo: srcRepo, Logger: logger}
	archH := &handler.ArchiveHandler{Client: archiveClient, Logger: logger}

	v1 := e.Group("/api/v1")
	v1.POST("/ingest", logH.Ingest)

	v1.GET("/search", logH.Search)
	v1.GET("/search/fields", logH.SearchFields)
	v1.GET("/search/timerange", logH.TimeRangeOptions)

	v1.GET("/logs/recent", logH.Recent)
	v1.GET("/logs/export", logH.ExportCSV)
	v1.GET("/logs/vendor-counts", statsH.VendorCounts)
	v1.GET("/logs/severity-distribution", statsH.SeverityDistribution)
	v1.GET("/logs/time-series", statsH.TimeSeries)

	v1.GET("/dashboard/stats", statsH.Dashboard)

	v1.GET("/sources/types", srcH.ListTypes)
	v1.GET("/sources", srcH.List)
	v1.GET("/sources/:id", srcH.Get)
	v1.POST("/sources", srcH.Create)
	v1.PUT("/sources/:id", srcH.Update)
	v1.DELETE("/sources/:id", srcH.Delete)

	v1.GET("/archive", archH.List)
	v1.GET("/archive/content", archH.Content)

	e.GET("/health", func(c echo.Context) error {
		return response.OK(c, map[string]string{"status": "healthy"}, "")
	})

	return &Server{Echo: e, Config: cfg, logger: logger}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the server fails. On cancel a graceful shutdown is attempted.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("shutdown failed")
		}
	}()
	addr := ":" + s.Config.Server.Port
	s.logger.Info().Str("addr", addr).Msg("server listening")
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
