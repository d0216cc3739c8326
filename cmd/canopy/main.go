// Package main is the entry point for the canopy data server.
package main

import (
	"log/slog"
	"os"

	"github.com/canopy-data/canopy/cmd/canopy/app"
	"github.com/canopy-data/canopy/internal/config"
	"github.com/canopy-data/canopy/pkg/logger"
)

func main() {
	// Structured JSON logging on stderr keeps stdout clean for commands
	// that output data (e.g. version --format json).
	handler := logger.NewHandler(logger.WithLevel(config.LogLevel()))
	slog.SetDefault(slog.New(handler))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
