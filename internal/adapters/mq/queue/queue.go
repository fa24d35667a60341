// Package queue buffers engine notifications between the spin goroutine
// and the dispatcher.
//
// Enqueue never blocks: the engine calls it while emitting ticks and must
// not be slowed down by consumers. When the queue is full the notification
// is dropped and counted.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/pkg/metrics"
)

const defaultCapacity = 1024

// Envelope is a queued notification.
type Envelope struct {
	Notification model.Notification
	EnqueuedAt   time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds n to the queue and reports whether it was accepted.
	Enqueue(ctx context.Context, n model.Notification) bool

	// Dequeue returns the channel envelopes arrive on, in enqueue order.
	// It is closed when the queue is closed and drained.
	Dequeue() <-chan Envelope

	// Len returns the number of queued envelopes.
	Len() int

	// Close stops accepting envelopes. Already queued ones can still be read.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	envelopes chan Envelope
	capacity  int
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates an in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.envelopes = make(chan Envelope, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue implements Queue.Enqueue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n model.Notification) bool { //nolint:gocritic // hugeParam: copied into the channel anyway
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueDropped()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.envelopes <- Envelope{Notification: n, EnqueuedAt: q.now()}:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.envelopes))
		return true
	default:
		metrics.RecordQueueDropped()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Notify lets the queue listen to the engine directly.
func (q *InMemoryQueue) Notify(ctx context.Context, n model.Notification) {
	q.Enqueue(ctx, n)
}

// Dequeue implements Queue.Dequeue.
func (q *InMemoryQueue) Dequeue() <-chan Envelope {
	return q.envelopes
}

// Len implements Queue.Len.
func (q *InMemoryQueue) Len() int {
	size := len(q.envelopes)
	metrics.UpdateQueueSize(size)
	return size
}

// Close implements Queue.Close.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.envelopes)
	q.closed = true
	return nil
}

// IsClosed implements Queue.IsClosed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
