package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/journalimport/internal/app"
	"github.com/JonMunkholm/journalimport/internal/config"
	"github.com/JonMunkholm/journalimport/internal/core"
	"github.com/JonMunkholm/journalimport/internal/logging"
	"github.com/JonMunkholm/journalimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	deps, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	service := core.NewService(deps.Store, deps.Blobs, core.OptionsFromConfig(cfg))
	service.Start()

	var sweeper *core.Sweeper
	if cfg.Sweep.Enabled {
		sweeper, err = service.NewSweeper(cfg.Sweep.Schedule)
		if err != nil {
			slog.Error("failed to schedule sweeper", "error", err)
			os.Exit(1)
		}
		sweeper.Start()
	}

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop taking requests first so no new uploads are accepted.
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
		if sweeper != nil {
			sweeper.Stop(shutdownCtx)
		}

		st := service.DispatcherStatus()
		if st.Active > 0 {
			slog.Info("waiting for processing sessions to finish", "active", st.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("processing sessions did not finish in time", "error", err)
		} else {
			slog.Info("all processing sessions finished")
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
