// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides process-level plumbing shared by Upkeep
// binaries: the standard logger and an HTTP server with graceful
// shutdown tied to context cancellation.
package service

import (
	"log/slog"
	"os"
)

// NewLogger creates the standard Upkeep service logger: a JSON
// handler writing to stderr at Info level. It also sets the default
// slog logger so that third-party code using slog.Info etc. gets
// the same handler.
func NewLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
