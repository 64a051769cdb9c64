package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"homegate/config"
)

// setupLogging installs the process-wide slog handler: text output to
// stderr or the configured log file, debug level when requested. Returns
// the log file so main can close it on shutdown.
func setupLogging(cfg *config.Config) (*os.File, error) {
	var w io.Writer = os.Stderr
	var logFile *os.File

	if cfg.Log.Filename != "" {
		f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		w = f
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return logFile, nil
}
