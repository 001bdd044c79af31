// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/liquidgpt/internal/model"
)

// =============================================================================
// WATCHER
// =============================================================================

// Watchable is implemented by backends whose data lives on disk.
type Watchable interface {
	WatchPath() string
}

// ErrNotWatchable is returned for backends without an on-disk location.
var ErrNotWatchable = errors.New("storage backend cannot be watched")

// DefaultWatchDebounce collapses the bursts of events an atomic write makes.
const DefaultWatchDebounce = 150 * time.Millisecond

// Watcher reports the conversation list whenever the backend's files
// change, including writes made by other processes.
type Watcher struct {
	store    *ConversationStore
	watcher  *fsnotify.Watcher
	dir      string
	prefix   string
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher watches the location of backend. For a directory every file is
// relevant; for a single file (SQLite) only names sharing its base name,
// which covers the -wal and -journal side files.
func NewWatcher(store *ConversationStore, backend Backend, debounce time.Duration) (*Watcher, error) {
	w, ok := backend.(Watchable)
	if !ok {
		return nil, ErrNotWatchable
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	path := w.WatchPath()
	dir, prefix := path, ""
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir, prefix = filepath.Dir(path), filepath.Base(path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		store:    store,
		watcher:  fw,
		dir:      dir,
		prefix:   prefix,
		debounce: debounce,
		logger:   store.logger,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run delivers the conversation list after each settled burst of changes
// until ctx is done. The channel is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) <-chan []model.Conversation {
	out := make(chan []model.Conversation, 1)

	go func() {
		defer close(out)
		defer w.watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.relevant(event) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(w.debounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				select {
				case out <- w.store.GetAll():
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}()

	return out
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	// Temp files from atomic writes are followed by a rename onto the target.
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") {
		return false
	}
	return w.prefix == "" || strings.HasPrefix(base, w.prefix)
}
