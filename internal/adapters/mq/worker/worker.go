// Package worker drains the notification queue and hands each envelope to
// the delivery handlers.
//
// A single goroutine does the draining so that handlers observe
// notifications in exactly the order the engine produced them.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/randommarket/internal/adapters/mq/queue"
	"github.com/okian/randommarket/internal/adapters/repository"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/pkg/logger"
	"github.com/okian/randommarket/pkg/metrics"
)

// Queue defines how the dispatcher receives envelopes.
type Queue interface {
	Dequeue() <-chan queue.Envelope
}

// Handler consumes one envelope.
type Handler interface {
	Handle(ctx context.Context, env queue.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env queue.Envelope) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, env queue.Envelope) error { return f(ctx, env) } //nolint:gocritic // hugeParam: envelope travels by value

// Worker processes envelopes until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is
	// called or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after it delivered what is already queued.
	Shutdown(ctx context.Context) error
}

// Dispatcher implements Worker. Every handler sees every envelope; a
// failing handler is logged and does not stop the others.
type Dispatcher struct {
	queue    Queue
	handlers []Handler
	name     string
	now      func() time.Time

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher reading from q.
func NewDispatcher(q Queue, handlers []Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		handlers: handlers,
		name:     "dispatcher",
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)
	return d
}

// Run starts the dispatch loop.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	envelopes := d.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			d.drain(ctx, envelopes)
			return
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			d.dispatch(ctx, env)
		}
	}
}

// drain delivers whatever is buffered right now without waiting for more.
func (d *Dispatcher) drain(ctx context.Context, envelopes <-chan queue.Envelope) {
	for {
		select {
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			d.dispatch(ctx, env)
		default:
			return
		}
	}
}

// Shutdown stops the loop and waits for it to exit.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run returned.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

func (d *Dispatcher) dispatch(ctx context.Context, env queue.Envelope) { //nolint:gocritic // hugeParam: envelope travels by value
	metrics.RecordQueueDequeue()
	if !env.EnqueuedAt.IsZero() {
		metrics.RecordDispatchLatency(float64(d.now().Sub(env.EnqueuedAt).Microseconds()) / 1000)
	}

	for _, h := range d.handlers {
		if err := h.Handle(ctx, env); err != nil {
			metrics.RecordErrorByComponent("dispatcher", "handler_error")
			d.logger.Error(ctx, "handler failed",
				logger.String("kind", string(env.Notification.Kind)),
				logger.String("spin_id", env.Notification.SpinID),
				logger.Error(err),
			)
		}
	}
}

// HistoryHandler records completed spins into store.
func HistoryHandler(store repository.Store) Handler {
	return HandlerFunc(func(ctx context.Context, env queue.Envelope) error {
		n := env.Notification
		if n.Kind != model.KindCompleted {
			return nil
		}
		if n.Result == nil {
			return fmt.Errorf("%w: spin %s", ErrMissingResult, n.SpinID)
		}
		if err := store.Record(ctx, repository.RecordFromResult(*n.Result)); err != nil {
			return fmt.Errorf("record spin %s: %w", n.SpinID, err)
		}
		return nil
	})
}
