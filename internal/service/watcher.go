package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanshika/eduroute/backend/internal/observability"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher triggers a callback when a graph file changes on disk. Bursts of
// events are collapsed into one call after a short quiet period.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onChange func(ctx context.Context)
	debounce time.Duration
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for path.
func NewWatcher(logger *slog.Logger, path string, onChange func(ctx context.Context)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		logger:   logger.With("component", "graph_watcher"),
		onChange: onChange,
		debounce: defaultDebounce,
	}
}

// WithDebounce overrides the quiet period.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Start begins watching until ctx is cancelled. The parent directory is
// watched so editors and tools that replace the file atomically are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fsw.Close()

		w.logger.Info("watching graph file", "path", w.path)

		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			case <-fire:
				fire = nil
				observability.WatcherEventsTotal.Inc()
				w.onChange(ctx)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("graph watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Wait blocks until the watch loop has exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}
