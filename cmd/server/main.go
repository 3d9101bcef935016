/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rota fill engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env + .env)
  2. Initialize SQLite store
  3. Construct the fill orchestrator with injected repositories
  4. Configure HTTP router and auto-fill scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/rota-engine/api"
	"github.com/warp/rota-engine/config"
	"github.com/warp/rota-engine/logger"
	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override env for local runs.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	log := logger.New(cfg.LogLevel, cfg.Environment)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	loc, err := time.LoadLocation(cfg.SiteTimezone)
	if err != nil {
		log.WithError(err).Fatalf("invalid SITE_TIMEZONE %q", cfg.SiteTimezone)
	}

	orch := &rota.Orchestrator{
		Contracts:    store,
		Templates:    store,
		Holidays:     store,
		Leaves:       store,
		Records:      store,
		Audit:        store,
		TZ:           rota.NewTimeZoneAdjuster(rota.StaticTimeZoneSource{Desc: cfg.Descriptor()}, loc),
		Log:          log,
		PersistDelay: cfg.PersistDelay,
	}

	handler := api.NewHandler(store, orch, log, cfg.WeekStart, cfg.BatchPause)
	router := api.NewRouter(handler)

	scheduler := api.NewAutoFillScheduler(store, orch, log, cfg.AutoFillCron, cfg.BatchPause, cfg.WeekStart)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("failed to start auto-fill scheduler")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
