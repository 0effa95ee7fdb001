// Command process-pending processes every pending upload once, in the
// foreground, and exits. Use it to drain uploads left behind by a server
// that stopped before reaching them.
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
)

func main() {
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	if cfg.Database.UsesMemoryStore() {
		slog.Warn("in-memory store selected; there is nothing pending to process")
	}

	service := core.NewService(deps.Store, deps.Blobs, core.OptionsFromConfig(cfg))
	report, err := service.ProcessPending(ctx)
	slog.Info("pending uploads processed",
		"completed", report.Completed,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	if err != nil {
		slog.Error("processing stopped early", "error", err)
		deps.Close()
		os.Exit(1)
	}
}
