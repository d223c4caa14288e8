// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the shared structured logger for advisor-tui.
//
// The TUI owns the terminal, so nothing may log to stdout or stderr while
// the program is interactive. All diagnostics go to a JSON log file under
// the state directory; the logger defaults to a no-op until Init is called,
// which keeps tests and library use silent.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init configures the global logger to write JSON entries to logPath.
// level is one of "debug", "info", "warn", "error"; unknown values fall
// back to info.
func Init(logPath, level string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

// SetLevel rebuilds nothing; it is handled by re-running Init. Exposed as a
// convenience for config hot reload, where only the level changed.
func SetLevel(logPath, level string) error {
	return Init(logPath, level)
}

// L returns the global logger. Safe before Init (returns a no-op logger).
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Named returns a child logger carrying a subsystem name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = logger.Sync()
}

// SetLogger swaps the global logger. Tests use this to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
