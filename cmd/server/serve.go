package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"fileshare/internal/server/api"
	"fileshare/internal/server/auth"
	"fileshare/internal/server/config"
	"fileshare/internal/server/database"
	"fileshare/internal/server/service"
	"fileshare/internal/server/session"
	"fileshare/internal/server/storage"
)

func openDatabase(ctx context.Context, cfg *config.Config) (database.Store, error) {
	store, err := database.Open(ctx, database.Backend{
		Type:       cfg.DatabaseType,
		URL:        cfg.DatabaseURL,
		SQLiteFile: cfg.SQLiteFile(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.RunMigrations(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database migrations complete", "db_type", cfg.DatabaseType)
	return store, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return store.Close()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, closer, err := setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	creds, err := auth.NewCredentials(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize storage
	files := storage.NewFileSystemStore(cfg.UploadDir)
	if err := files.EnsureDir(); err != nil {
		return err
	}
	slog.Info("file storage initialized", "path", files.BasePath())

	registry := service.NewRegistry(db, files, cfg.MaxFileSize)
	engine := service.NewEngine(registry, creds)

	// Background workers share one lifetime
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	tracker := session.NewTracker(cfg.SessionTimeout)
	tracker.Start(workerCtx, cfg.SessionSweepInterval)
	guard := session.NewGuard(tracker, registry)

	cleanup := storage.NewCleanupService(db, files, cfg.OrphanSweepInterval, cfg.OrphanGrace)
	cleanup.Start(workerCtx)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := api.NewMetrics(promRegistry, tracker)

	handler := api.NewHandler(registry, engine, guard, metrics, cfg.BaseURL)
	e := api.SetupRouter(handler, creds, cfg, promRegistry)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL, "admin", creds.Username())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server failed", "error", err)
		workerCancel()
		cleanup.Wait()
		tracker.Wait()
		return err
	}

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	workerCancel()
	cleanup.Wait()
	tracker.Wait()

	slog.Info("server exited cleanly")
	return nil
}
