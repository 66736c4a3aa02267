/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the LeaveDesk server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file + environment)
  2. Build the structured logger
  3. Open the SQLite store
  4. Validate the leave-type -> bucket mapping against the catalog
  5. Wire the lifecycle engine and notification dispatcher
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to config YAML (default: ./config.yaml if present)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with defaults
  ./server

  # Run with explicit config
  ./server -config=./deploy/config.yaml

  # Override via environment
  LEAVEDESK_SERVER_PORT=3000 ./server

SEE ALSO:
  - config/config.go: Configuration shape and validation
  - api/server.go: Router configuration
  - leave/engine.go: The lifecycle engine
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crewpoint/leavedesk/api"
	"github.com/crewpoint/leavedesk/config"
	"github.com/crewpoint/leavedesk/leave"
	"github.com/crewpoint/leavedesk/logging"
	"github.com/crewpoint/leavedesk/notify"
	"github.com/crewpoint/leavedesk/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	buckets, err := cfg.Buckets()
	if err != nil {
		logger.Fatal("invalid bucket mapping", zap.Error(err))
	}
	allocations, err := cfg.BucketAllocations()
	if err != nil {
		logger.Fatal("invalid allocations", zap.Error(err))
	}

	// Fail fast on a catalog entry no mapping covers.
	ctx := context.Background()
	types, err := store.ListLeaveTypes(ctx)
	if err != nil {
		logger.Fatal("failed to load leave types", zap.Error(err))
	}
	if err := buckets.Validate(types); err != nil {
		logger.Fatal("bucket mapping does not cover the leave-type catalog", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(store, logger)
	engine := leave.NewEngine(store, buckets, dispatcher, logger)
	handler := api.NewHandler(store, engine, allocations, logger)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr()),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
