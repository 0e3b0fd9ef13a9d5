// Package watch re-runs a handler whenever one of a set of files is saved.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called with the absolute path of a file after it settles.
type Handler func(ctx context.Context, path string)

// Watcher debounces file system events for a fixed set of files.
//
// Parent directories are watched rather than the files themselves, so
// editors that save by renaming a temp file over the original still
// trigger the handler.
type Watcher struct {
	paths    []string
	debounce time.Duration
	handle   Handler
	logger   *slog.Logger
	ready    chan struct{}
}

// New creates a watcher for paths. Each burst of events on a file calls
// handle once, debounce after the last event.
func New(paths []string, debounce time.Duration, handle Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		paths:    paths,
		debounce: debounce,
		handle:   handle,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once every directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled. Handler calls happen on the Run
// goroutine, one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	targets := make(map[string]bool, len(w.paths))
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", "dir", dir)
	}
	close(w.ready)

	fire := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if !targets[name] {
				continue
			}

			// Debounce
			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- name:
				case <-ctx.Done():
				}
			})

		case path := <-fire:
			w.logger.Debug("file changed", "file", path)
			w.handle(ctx, path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
