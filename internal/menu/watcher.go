// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package menu

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"

	"github.com/holomush/virtualchest/pkg/errutil"
)

// DefaultDebounce is how long the watcher waits for more changes before reloading.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc is called after menu files changed.
type ReloadFunc func(ctx context.Context) error

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// Watcher triggers a reload when menu files in a directory change.
// Bursts of changes within the debounce window cause a single reload.
type Watcher struct {
	dir      string
	reload   ReloadFunc
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, reload ReloadFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:      filepath.Clean(dir),
		reload:   reload,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. It returns an error only if the watch
// could not be established.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.With("dir", w.dir).Wrapf(err, "create file watcher")
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(w.dir); err != nil {
		return oops.With("dir", w.dir).Wrapf(err, "watch menus directory")
	}
	w.logger.InfoContext(ctx, "watching menus directory", "dir", w.dir, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.DebugContext(ctx, "menu file changed", "path", event.Name, "op", event.Op.String())
			if pending {
				timer.Stop()
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "menus watcher error", "dir", w.dir, "error", err)
		case <-timer.C:
			pending = false
			if err := w.reload(ctx); err != nil {
				errutil.LogError(w.logger, "menu reload after file change failed", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return IsMenuFile(event.Name)
}
