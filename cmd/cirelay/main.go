package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/cirelay/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/cirelay/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/cirelay/internal/adapter/driving/http"
	"github.com/ericfisherdev/cirelay/internal/application"
	"github.com/ericfisherdev/cirelay/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing or malformed env vars,
	// including the module->workflow mapping).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"dispatch_timeout", cfg.DispatchTimeout,
		"run_timeout", cfg.RunTimeout,
		"modules", cfg.Modules.Names(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters and services.
	runStore := sqliteadapter.NewRunRepo(db)
	ghClient := githubadapter.NewClient(cfg.GitHubToken)

	dispatchSvc := application.NewDispatchService(ghClient, cfg.PollInterval, cfg.DispatchTimeout)
	monitorSvc := application.NewMonitorService(ghClient, runStore, cfg.PollInterval, cfg.RunTimeout)
	triggerSvc := application.NewTriggerService(ghClient, runStore, dispatchSvc, monitorSvc, cfg.Modules, cfg.DispatchTimeout, cfg.RunTimeout)

	// 6. Create HTTP handler and server.
	handler := httphandler.NewHandler(triggerSvc, runStore, cfg.WebhookSecret, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("cirelay started", "listen_addr", cfg.ListenAddr)

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 8. Stop accepting webhook deliveries.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 9. Drain in-flight discovery/monitor work. Early-acknowledged webhook
	// deliveries continue polling after their response was sent; the process
	// must stay alive until those goroutines finish or their own run timeout
	// fires.
	slog.Info("waiting for in-flight run monitors")
	triggerSvc.Wait()

	slog.Info("shutdown complete")
	return nil
}
