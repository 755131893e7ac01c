/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cash-flow analytics server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize the series cache (memory, sqlite or postgres)
  3. Initialize the statement loader (local files + gs:// objects)
  4. Initialize the event publisher (Kafka, or no-op without brokers)
  5. Create service, handler and router
  6. Start the cache janitor and the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -data       Directory holding statement_{branch}_*.csv (default: ./data)
  -cache      memory | sqlite | postgres (default: sqlite)
  -dsn        SQLite path or PostgreSQL DSN (default: cashflow-cache.db)
  -log-level  debug | info | warn | error (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the janitor, close the publisher and the cache
  4. Exit

EXAMPLES:
  ./server -data=./statements -cache=memory
  CASHFLOW_CACHE_DRIVER=postgres CASHFLOW_CACHE_DSN=postgres://... ./server

SEE ALSO:
  - config/config.go: All settings and environment variables
  - api/server.go: Router configuration
  - analytics/service.go: Request orchestration
*/
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/cashflow-engine/analytics"
	"github.com/warp/cashflow-engine/api"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/cashflow/store"
	"github.com/warp/cashflow-engine/config"
	"github.com/warp/cashflow-engine/events"
	"github.com/warp/cashflow-engine/events/kafka"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/ingest"
	"github.com/warp/cashflow-engine/logger"
	"github.com/warp/cashflow-engine/recurrence"
	"github.com/warp/cashflow-engine/store/postgres"
	"github.com/warp/cashflow-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel)

	// Initialize cache
	cache, closeCache, err := openCache(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.CacheDriver).Msg("Failed to initialize series cache")
	}
	defer closeCache()

	// Initialize publisher
	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", cfg.KafkaBrokers).Msg("Publishing debit order events to Kafka")
	}

	clock := cashflow.SystemClock{}
	detector, err := recurrence.NewDetector(cfg.Recurrence, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid recurrence configuration")
	}

	svc := analytics.New(analytics.Deps{
		Loader:    ingest.NewFileLoader(cfg.DataDir, ingest.GCSStore{}, log),
		Cache:     cache,
		Engine:    forecast.NewEngine(log),
		Detector:  detector,
		Publisher: publisher,
		Clock:     clock,
		Log:       log,
	})

	handler := api.NewHandler(svc, cfg.CacheRetention)
	router := api.NewRouter(handler, log)

	janitor := api.NewCacheJanitor(svc, cfg.CacheRetention, cfg.PruneInterval, log)
	janitor.Start()
	defer janitor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("data_dir", cfg.DataDir).
			Str("cache", cfg.CacheDriver).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server stopped")
}

func openCache(cfg config.Config, log zerolog.Logger) (cashflow.SeriesCache, func(), error) {
	switch cfg.CacheDriver {
	case config.DriverMemory:
		return store.NewMemory(), func() {}, nil
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := postgres.Open(ctx, cfg.CacheDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, closer(pg, log), nil
	default:
		lite, err := sqlite.New(cfg.CacheDSN)
		if err != nil {
			return nil, nil, err
		}
		return lite, closer(lite, log), nil
	}
}

func closer(c io.Closer, log zerolog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close cache")
		}
	}
}
