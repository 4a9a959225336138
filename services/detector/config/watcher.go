// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of fsnotify events editors emit for
// one logical save.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads a config file on change and hands the validated result
// to a callback. Invalid or unreadable files are logged and skipped; the
// previously active configuration stays in effect.
type Watcher struct {
	path     string
	onChange func(*DetectorConfig)
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher for path. onChange runs on the watcher
// goroutine; callbacks must be fast and must not block.
func NewWatcher(path string, onChange func(*DetectorConfig)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file: atomic-rename saves replace
	// the inode and a file watch would go silent after the first save.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	return &Watcher{
		path:     path,
		onChange: onChange,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching until ctx is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Close stops the watcher and releases the fsnotify handle.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	target, _ := filepath.Abs(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			abs, _ := filepath.Abs(event.Name)
			if abs != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload rejected, keeping active configuration",
			"path", w.path,
			"error", err)
		return
	}
	slog.Info("configuration reloaded", "path", w.path)
	w.onChange(cfg)
}
