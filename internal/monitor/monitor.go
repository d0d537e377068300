// Package monitor runs the loop that turns new log lines into
// notifications: wait for a trigger, read what is new, classify each
// line, report and dispatch the events found.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmurray2011/joinwatch/internal/event"
	"github.com/jmurray2011/joinwatch/internal/tail"
	"github.com/jmurray2011/joinwatch/internal/watcher"
)

// ErrWatcherStopped is returned by Run when the trigger source goes away
// while the monitor is still supposed to be running.
var ErrWatcherStopped = errors.New("watcher stopped unexpectedly")

// Reader yields the lines appended since the last call. *tail.Cursor
// implements it.
type Reader interface {
	AttemptRead() ([]tail.Line, error)
}

// Dispatcher accepts events for delivery without blocking.
// *notify.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ev event.Event) bool
}

// Monitor follows one log file. Run must not be called concurrently.
type Monitor struct {
	reader     Reader
	matcher    *event.Matcher
	watcher    watcher.Watcher
	dispatcher Dispatcher
	out        io.Writer
	logger     *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithOutput sets where progress lines are written.
func WithOutput(w io.Writer) Option {
	return func(m *Monitor) { m.out = w }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// New creates a Monitor.
func New(reader Reader, w watcher.Watcher, d Dispatcher, opts ...Option) *Monitor {
	m := &Monitor{
		reader:     reader,
		matcher:    event.NewMatcher(),
		watcher:    w,
		dispatcher: d,
		out:        io.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run follows the file until ctx is cancelled. It returns an error only
// if the watch cannot be started or stops on its own; read faults are
// logged and retried on the next trigger.
func (m *Monitor) Run(ctx context.Context) error {
	triggers, err := m.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	// Catch anything written between the cursor being positioned and the
	// watch being established.
	m.process(watcher.Trigger{Source: watcher.SourcePoll, Op: "initial"})

	for {
		select {
		case <-ctx.Done():
			return nil
		case tr, ok := <-triggers:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrWatcherStopped
			}
			m.process(tr)
		}
	}
}

// process handles one trigger from read to dispatch.
func (m *Monitor) process(tr watcher.Trigger) {
	lines, err := m.reader.AttemptRead()
	if err != nil {
		m.logger.Warn("read attempt failed, will retry", "trigger", tr.Source, "error", err)
		return
	}
	if len(lines) > 0 {
		m.logger.Debug("read new lines", "trigger", tr.Source, "op", tr.Op, "lines", len(lines))
	}

	for _, line := range lines {
		for _, ev := range m.matcher.Classify(line.Text) {
			fmt.Fprintln(m.out, ev.Message())
			m.dispatcher.Dispatch(ev)
		}
	}
}
