package watcher

import (
	"context"
	"time"
)

// pollingWatcher triggers unconditionally on every tick. The cursor
// decides whether anything changed, so a missing or rotated file needs no
// special handling here.
type pollingWatcher struct {
	config Config
}

// Watch starts the ticker and sends a trigger on every tick.
func (w *pollingWatcher) Watch(ctx context.Context) (<-chan Trigger, error) {
	triggers := make(chan Trigger, 1)

	go func() {
		defer close(triggers)

		ticker := time.NewTicker(w.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				offer(triggers, Trigger{Source: SourcePoll})
			}
		}
	}()

	return triggers, nil
}
