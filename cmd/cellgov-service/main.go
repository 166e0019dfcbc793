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

	"github.com/vanj900/cellgov/internal/api"
	"github.com/vanj900/cellgov/internal/config"
	"github.com/vanj900/cellgov/internal/factory"
	"github.com/vanj900/cellgov/internal/platform/logger"
)

func main() {
	dbDriver := flag.String("db-driver", "", "Override CELLGOV_DB_DRIVER (sqlite, postgres)")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		bootLog := logger.New("cellgov-service", "", "info")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New("cellgov-service", cfg.NodeName, cfg.LogLevel)
	if *dbDriver != "" {
		cfg.DBDriver = *dbDriver
		if err := cfg.ResolveDefaults(); err != nil {
			log.Fatal().Err(err).Msg("Invalid db-driver override")
		}
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Cell node starting…")

	st, err := factory.NewStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Store unavailable")
	}

	deps, err := factory.NewDeps(cfg, st, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Service wiring failed")
	}

	// Background sync loop: pushes queued messages to reachable peers.
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	go func() {
		if err := deps.Sync.Run(syncCtx); err != nil && syncCtx.Err() == nil {
			log.Error().Err(err).Msg("sync engine exited")
		}
	}()

	router := api.NewRouter(deps)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server…")
	stopSync()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
