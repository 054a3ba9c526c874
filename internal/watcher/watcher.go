// Package watcher provides recursive file-system watching filtered to
// the monitored template extensions. It is deliberately thin: raw
// change events go out on a channel, and all coalescing happens in the
// engine's per-extension debouncers.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/weftlabs/weft/internal/refindex"
)

// Event is one raw file-change notification.
type Event struct {
	// Path is the absolute path of the changed file.
	Path string

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Watcher watches a directory tree and emits events for files whose
// names match the monitored extensions.
type Watcher struct {
	fsw    *fsnotify.Watcher
	exts   []string
	events chan Event
	errors chan error
	stopCh chan struct{}

	mu       sync.Mutex
	rootPath string
	stopped  bool
}

// New creates a Watcher for files matching exts.
func New(exts []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:    fsw,
		exts:   exts,
		events: make(chan Event, 256),
		errors: make(chan error, 10),
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins watching root recursively and blocks until the context
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.rootPath = absRoot
	w.mu.Unlock()

	if err := w.addRecursive(absRoot); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// handleEvent filters and converts one fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Chmod != 0 {
		return
	}

	// New directories must join the watch set for recursion to hold.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
			return
		}
	}

	if !refindex.MatchesExtension(event.Name, w.exts) {
		return
	}

	w.emit(Event{Path: event.Name, Timestamp: time.Now()})
}

// addRecursive adds all directories under root to the fsnotify watcher.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't access
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

// emit sends an event without blocking the watch loop.
func (w *Watcher) emit(e Event) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	select {
	case w.events <- e:
	default:
		slog.Warn("watch event buffer full, dropping event",
			slog.String("path", e.Path))
	}
}

// emitError sends an error without blocking the watch loop.
func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	_ = w.fsw.Close()
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of filtered file events.
// The channel is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors.
// Non-fatal errors are sent here; the watcher continues running.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// RootPath returns the root path being watched.
func (w *Watcher) RootPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rootPath
}
