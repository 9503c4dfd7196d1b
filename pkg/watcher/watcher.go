// Package watcher reloads the causal DAG when its DOT file changes on
// disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mhutton/causal-analyzer/pkg/logging"
)

// ChangeEvent signals that the watched DOT file changed.
type ChangeEvent struct {
	Path      string
	Timestamp time.Time
}

// DagWatcher watches a single DOT file for modification. The parent
// directory is watched rather than the file itself because editors
// typically replace files on save.
type DagWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	raw     chan ChangeEvent
}

// NewDagWatcher creates a watcher for the given DOT file.
func NewDagWatcher(path string) (*DagWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return &DagWatcher{
		watcher: fw,
		path:    abs,
		raw:     make(chan ChangeEvent, 16),
	}, nil
}

// Start begins watching and returns a channel of debounced change
// events. The channel closes when the context is cancelled.
func (w *DagWatcher) Start(ctx context.Context) (<-chan ChangeEvent, error) {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	logging.Info("watching causal DAG file", "path", w.path)

	go w.processEvents(ctx)

	d := newDebouncer(w.raw, 200*time.Millisecond, 2*time.Second)
	d.start(ctx)
	return d.output, nil
}

func (w *DagWatcher) processEvents(ctx context.Context) {
	defer w.watcher.Close()
	defer close(w.raw)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logging.Debug("dag file changed", "op", event.Op.String())
			select {
			case w.raw <- ChangeEvent{Path: w.path, Timestamp: time.Now()}:
			default:
				// Raw channel full: the debouncer already has a
				// pending flush for this burst.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("watch error", "error", err)
		}
	}
}

// relevant filters directory events down to mutations of the watched
// file.
func (w *DagWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
