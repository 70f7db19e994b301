package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a menu file into a Holder whenever the file changes.
// A file that fails to load leaves the previous catalog in place.
type Watcher struct {
	path     string
	holder   *Holder
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for path. The parent directory is watched so
// editors that replace the file by rename are still seen.
func NewWatcher(path string, holder *Holder, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		holder:   holder,
		debounce: debounce,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Run processes file events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			pending = timer.C

		case <-pending:
			pending = nil
			w.Reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("menu watcher error", "error", err)
		}
	}
}

// Reload loads the file now and swaps it in on success
func (w *Watcher) Reload() {
	c, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("menu reload failed, keeping previous catalog", "path", w.path, "error", err)
		return
	}
	w.holder.Swap(c)
	w.logger.Info("menu reloaded", "path", w.path, "items", c.Len())
}
