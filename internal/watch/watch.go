// Package watch triggers an action when a single file is rewritten.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher fires a callback after a watched file settles.
// The parent directory is watched so atomic rename-into-place is seen too.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	log      *zap.Logger
}

func NewFileWatcher(path string, debounce time.Duration, log *zap.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileWatcher{watcher: w, path: abs, debounce: debounce, log: log}, nil
}

// Run blocks until ctx is done, calling onChange once per burst of writes.
// onChange runs on the watcher goroutine, so bursts during a rebuild are
// coalesced into the next call.
func (w *FileWatcher) Run(ctx context.Context, onChange func(context.Context)) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("document cache changed", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			onChange(ctx)
		}
	}
}

// Stop stops the watcher.
func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}
