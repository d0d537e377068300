package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// notifyWatcher subscribes to the directory containing the file, which
// keeps working when the file does not exist yet or is deleted and
// recreated during rotation.
type notifyWatcher struct {
	config Config
}

// Watch subscribes to the containing directory. Failing to subscribe is
// an error; the watcher never falls back to firing nothing.
func (w *notifyWatcher) Watch(ctx context.Context) (<-chan Trigger, error) {
	target, err := filepath.Abs(w.config.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", w.config.Path, err)
	}
	dir := filepath.Dir(target)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	triggers := make(chan Trigger, 1)
	logger := w.config.Logger.With("path", target)

	go func() {
		defer close(triggers)
		defer fw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				offer(triggers, Trigger{Source: SourceNotify, Op: ev.Op.String()})
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				if errors.Is(err, fsnotify.ErrEventOverflow) {
					// Events were dropped; the file may have changed.
					logger.Warn("filesystem event overflow", "error", err)
					offer(triggers, Trigger{Source: SourceNotify, Op: "OVERFLOW"})
					continue
				}
				logger.Error("filesystem watch error", "error", err)
			}
		}
	}()

	return triggers, nil
}
