// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging configures structured logging for Kodiak processes.
//
// It is a thin layer over log/slog: it builds the handler stack (stderr
// in text or JSON, optional JSON file per service per day) and installs
// it as the process default, so the rest of the codebase logs through
// plain slog calls.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN" or "ERROR".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads a level name, case-insensitive. Unknown names map to
// LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures Setup. A zero-value Config logs Info+ to stderr in
// text format.
type Config struct {
	// Level is the minimum level; messages below it are discarded.
	Level Level

	// Service is attached to every entry as the "service" attribute.
	Service string

	// JSON switches stderr output to JSON. File output is always JSON.
	JSON bool

	// Quiet disables stderr output entirely. Useful for daemons whose
	// stderr nobody watches.
	Quiet bool

	// LogDir enables file logging: "{Service}_{YYYY-MM-DD}.log" inside
	// the directory, created 0750 when missing. Supports a leading "~".
	LogDir string
}

// Logger owns the handler stack and the optional log file.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
}

// Setup builds a Logger from cfg and installs it as the slog default.
// Returns the Logger so the caller can Close it on shutdown.
func Setup(cfg Config) (*Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(l.slogger)
	return l, nil
}

// New builds a Logger without touching the process default.
func New(cfg Config) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}

	var handlers []slog.Handler
	if !cfg.Quiet {
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	l := &Logger{}
	if cfg.LogDir != "" {
		f, err := openLogFile(cfg.LogDir, cfg.Service)
		if err != nil {
			return nil, err
		}
		l.file = f
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
	}

	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.NewTextHandler(io.Discard, opts)
	case 1:
		h = handlers[0]
	default:
		h = &multiHandler{handlers: handlers}
	}

	l.slogger = slog.New(h)
	if cfg.Service != "" {
		l.slogger = l.slogger.With("service", cfg.Service)
	}
	return l, nil
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger { return l.slogger }

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func openLogFile(dir, service string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", dir, err)
	}
	if service == "" {
		service = "kodiak"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// expandPath expands a leading "~" to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

var _ slog.Handler = (*multiHandler)(nil)

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
