// Package main is the entry point for the DevCompass API server.
//
// main stays small: it loads configuration, builds the logger, and hands
// both to internal/server, which does all the wiring. Configuration comes
// from defaults, an optional config.yaml (or CONFIG_PATH), then
// DEVCOMPASS_* environment variables; see internal/config.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/devcompass/internal/config"
	"github.com/sakif/devcompass/internal/logging"
	"github.com/sakif/devcompass/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No configured logger yet.
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes storage on the way out.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
