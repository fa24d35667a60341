// Package broadcast fans engine notifications out to live subscribers such
// as SSE connections.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/randommarket/internal/adapters/mq/queue"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/pkg/logger"
	"github.com/okian/randommarket/pkg/metrics"
)

const defaultSubscriberBuffer = 64

// Subscriber is one live listener. C is closed on Unsubscribe or Close.
type Subscriber struct {
	ID     string
	C      <-chan model.Notification
	ch     chan model.Notification
	filter map[model.NotificationKind]bool // nil means every kind
}

func (s *Subscriber) wants(kind model.NotificationKind) bool {
	return s.filter == nil || s.filter[kind]
}

// Hub delivers each published notification to every interested subscriber.
// Publishing never blocks: a subscriber whose buffer is full misses the
// notification.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool
	buffer int
	logger logger.Logger
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[string]*Subscriber),
		buffer: defaultSubscriberBuffer,
		logger: logger.Get().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a subscriber for the given kinds, or all kinds when
// none are given. On a closed hub the returned channel is already closed.
func (h *Hub) Subscribe(kinds ...model.NotificationKind) *Subscriber {
	ch := make(chan model.Notification, h.buffer)
	s := &Subscriber{ID: uuid.NewString(), C: ch, ch: ch}
	if len(kinds) > 0 {
		s.filter = make(map[model.NotificationKind]bool, len(kinds))
		for _, k := range kinds {
			s.filter[k] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	h.subs[s.ID] = s
	metrics.UpdateSubscribers(len(h.subs))
	return s
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(s.ch)
	metrics.UpdateSubscribers(len(h.subs))
}

// Publish hands n to every subscriber that wants its kind.
func (h *Hub) Publish(n model.Notification) { //nolint:gocritic // hugeParam: copied per subscriber anyway
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, s := range h.subs {
		if !s.wants(n.Kind) {
			continue
		}
		select {
		case s.ch <- n:
		default:
			metrics.RecordSubscriberDrop()
		}
	}
}

// Handle lets the hub sit behind the dispatcher.
func (h *Hub) Handle(_ context.Context, env queue.Envelope) error { //nolint:gocritic // hugeParam: envelope travels by value
	h.Publish(env.Notification)
	return nil
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber. Later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
	metrics.UpdateSubscribers(0)
	h.logger.Debug(context.Background(), "hub closed")
}
