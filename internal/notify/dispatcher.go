package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmurray2011/joinwatch/internal/event"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/time/rate"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = requestTimeout
)

// DispatcherConfig holds dispatcher configuration.
type DispatcherConfig struct {
	// ChatID is the destination for every message.
	ChatID string
	// QueueSize bounds notifications waiting for delivery.
	QueueSize int
	// Rate is the sustained sends per second; zero or less disables limiting.
	Rate float64
	// Burst is how many sends may go out back to back.
	Burst int
	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration
	Logger      *slog.Logger
}

type job struct {
	id    uuid.UUID
	event event.Event
	req   Request
}

// Dispatcher turns events into messages and delivers them in order on a
// single background worker. Dispatch never waits on the network: when the
// queue is full the notification is dropped and logged.
type Dispatcher struct {
	sender  Sender
	config  DispatcherConfig
	limiter *rate.Limiter
	logger  *slog.Logger

	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts a dispatcher delivering through sender.
func NewDispatcher(sender Sender, config DispatcherConfig) *Dispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaultSendTimeout
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender:  sender,
		config:  config,
		limiter: rate.NewLimiter(limit, config.Burst),
		logger:  config.Logger,
		queue:   make(chan job, config.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.wg.Go(d.run)
	return d
}

// Dispatch queues a notification for ev. It reports whether the
// notification was accepted.
func (d *Dispatcher) Dispatch(ev event.Event) bool {
	j := job{
		id:    uuid.New(),
		event: ev,
		req:   Request{ChatID: d.config.ChatID, Text: ev.Message()},
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", "delivery_id", j.id, "event", ev.Kind, "actor", ev.Actor)
		return false
	}

	select {
	case d.queue <- j:
		d.logger.Debug("notification queued", "delivery_id", j.id, "event", ev.Kind, "actor", ev.Actor)
		return true
	default:
		d.logger.Warn("notification dropped, queue full", "delivery_id", j.id, "event", ev.Kind, "actor", ev.Actor, "queue_size", d.config.QueueSize)
		return false
	}
}

// Close stops accepting notifications and delivers those already queued.
// If ctx ends first, the remaining deliveries are abandoned.
func (d *Dispatcher) Close(ctx context.Context) {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.cancel()
		<-done
	}
	d.cancel()
}

func (d *Dispatcher) run() {
	for j := range d.queue {
		d.deliver(j)
	}
}

// deliver makes one attempt. Failures and panics are logged and go no
// further.
func (d *Dispatcher) deliver(j job) {
	logger := d.logger.With("delivery_id", j.id, "event", j.event.Kind, "actor", j.event.Actor)

	if err := d.limiter.Wait(d.ctx); err != nil {
		logger.Warn("notification abandoned", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.config.SendTimeout)
	defer cancel()

	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = d.sender.Send(ctx, j.req) })
	if r := pc.Recovered(); r != nil {
		logger.Error("notification sender panicked", "error", r.AsError())
		return
	}
	if err != nil {
		logger.Error("notification failed", "error", err)
		return
	}
	logger.Debug("notification delivered")
}
