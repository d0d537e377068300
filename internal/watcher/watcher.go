// Package watcher decides when the followed log should be re-read.
//
// A Watcher never reads the file itself. It emits a Trigger whenever the
// file may have changed and leaves reading to the caller.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPollInterval is used when Config.PollInterval is unset.
const DefaultPollInterval = 100 * time.Millisecond

// Source indicates what produced a Trigger.
type Source int

const (
	// SourceNotify is a filesystem change notification.
	SourceNotify Source = iota
	// SourcePoll is a timer tick.
	SourcePoll
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceNotify:
		return "notify"
	case SourcePoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Trigger asks the consumer to attempt a read.
type Trigger struct {
	Source Source
	// Op describes the filesystem operation for notify triggers.
	Op string
}

// Watcher emits triggers for a single file.
type Watcher interface {
	// Watch starts watching and sends triggers on the returned channel.
	// Triggers are coalesced: if the consumer is still busy, at most one
	// pending trigger is kept. The channel is closed when ctx is done.
	// An error is returned if the watch cannot be established.
	Watch(ctx context.Context) (<-chan Trigger, error)
}

// Strategy selects how changes are detected.
type Strategy string

const (
	// StrategyNotify subscribes to filesystem notifications.
	StrategyNotify Strategy = "notify"
	// StrategyPoll triggers on a fixed interval.
	StrategyPoll Strategy = "poll"
)

// Config holds watcher configuration.
type Config struct {
	// Path is the file to watch. It does not need to exist yet.
	Path string
	// Strategy defaults to StrategyNotify.
	Strategy Strategy
	// PollInterval is how often StrategyPoll triggers.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// NewWatcher creates a Watcher for the configured strategy.
func NewWatcher(config Config) (Watcher, error) {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	switch config.Strategy {
	case StrategyNotify, "":
		return &notifyWatcher{config: config}, nil
	case StrategyPoll:
		return &pollingWatcher{config: config}, nil
	default:
		return nil, fmt.Errorf("unknown watch strategy %q (use %q or %q)", config.Strategy, StrategyNotify, StrategyPoll)
	}
}

// offer queues t unless a trigger is already pending.
func offer(triggers chan Trigger, t Trigger) {
	select {
	case triggers <- t:
	default:
	}
}
