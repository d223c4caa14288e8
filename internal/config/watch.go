// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is the delay before a config change triggers a reload.
// Editors often emit several write events per save.
const WatchDebounce = 500 * time.Millisecond

// Watcher reloads the global config when the config file changes on disk
// and notifies the registered callback with the fresh instance.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onReload func(*Config)

	mu      sync.Mutex
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the state directory's config files.
// onReload runs on the watcher goroutine after each successful reload.
func NewWatcher(onReload func(*Config)) (*Watcher, error) {
	dir, err := StateDir()
	if err != nil {
		return nil, err
	}
	// The directory itself is watched: editors replace files by rename,
	// which drops inode-level watches.
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		onReload: onReload,
		ctx:      ctx,
		cancel:   cancel,
	}
	go w.processEvents()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next manual reload still works.
		}
	}
}

// scheduleReload coalesces bursts of file events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	if w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = true
	w.mu.Unlock()

	time.AfterFunc(WatchDebounce, func() {
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()

		select {
		case <-w.ctx.Done():
			return
		default:
		}

		if err := ReloadGlobal(); err != nil {
			return
		}
		if w.onReload != nil {
			w.onReload(Global())
		}
	})
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "config.toml" || base == "config.json"
}
