package main

import (
	"log/slog"
	"os"

	"github.com/kstaniek/go-cansock/internal/logging"
)

// setupLogger installs the global logger. Config validation already
// rejected unknown levels.
func setupLogger(format, level string) *slog.Logger {
	lvl, _ := logging.ParseLevel(level)
	l := logging.New(format, lvl, os.Stderr).With("app", "cansock")
	logging.Set(l)
	return l
}
