package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher wakes the Queue Processor's drain loop whenever the queue file is
// written, by subscribing to change notifications on the queue file.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	Changes chan struct{}
}

// NewWatcher creates a Watcher for the queue file at path. The containing
// directory (not the file itself, which may not exist yet) is watched so
// the watch survives the file being created or rewritten via rename.
func NewWatcher(path string) (*Watcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("watcher: ensure dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watcher: watch dir %s: %w", dir, err)
	}

	return &Watcher{
		path:    path,
		fsw:     fsw,
		Changes: make(chan struct{}, 1),
	}, nil
}

// Run pumps fsnotify events into Changes until ctx is cancelled, coalescing
// bursts into a single pending notification (the drain loop only needs to
// know "something changed", not how many times).
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				continue
			}
			w.notify()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("queue watcher error", "error", err)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.Changes <- struct{}{}:
	default:
		// a notification is already pending; the drain loop will see it
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
