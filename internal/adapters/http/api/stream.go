// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/randommarket/internal/adapters/mq/broadcast"
	"github.com/okian/randommarket/internal/domain/engine"
	"github.com/okian/randommarket/internal/domain/model"
	"github.com/okian/randommarket/pkg/logger"
)

const defaultKeepalive = 15 * time.Second

// StreamDependencies hands out live notification subscriptions.
type StreamDependencies interface {
	Subscribe(kinds ...model.NotificationKind) (*broadcast.Subscriber, error)
	Unsubscribe(id string)
	Current(ctx context.Context) (engine.Snapshot, error)
}

// StreamHandler serves spin notifications as Server-Sent Events.
type StreamHandler struct {
	deps      StreamDependencies
	keepalive time.Duration
	logger    logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps, keepalive: defaultKeepalive, logger: logger.Get().Named("stream")}
}

// WithKeepalive sets how often an idle stream is pinged.
func (h *StreamHandler) WithKeepalive(d time.Duration) *StreamHandler {
	if d > 0 {
		h.keepalive = d
	}
	return h
}

// HandleStream handles GET /spins/stream requests. ?kinds=tick,completed
// limits the notification kinds. The first event is a snapshot of the
// engine so late joiners can render the current state.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrStreamUnsupported))
		return
	}

	var kinds []model.NotificationKind
	if raw := r.URL.Query().Get("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, model.NotificationKind(k))
			}
		}
	}

	ctx := r.Context()
	sub, err := h.deps.Subscribe(kinds...)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	defer h.deps.Unsubscribe(sub.ID)
	h.logger.Debug(ctx, "stream client connected", logger.String("subscriber_id", sub.ID))

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if snap, err := h.deps.Current(ctx); err == nil {
		if writeEvent(w, sub.ID, "snapshot", snap) != nil {
			return
		}
		flusher.Flush()
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-sub.C:
			if !ok {
				// Hub closed, the service is shutting down.
				return
			}
			seq++
			if err := writeEvent(w, fmt.Sprintf("%s-%d", n.SpinID, seq), string(n.Kind), n); err != nil {
				h.logger.Warn(ctx, "stream write failed", logger.Error(err))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame: "id: <id>\nevent: <type>\ndata: <json>\n\n".
func writeEvent(w http.ResponseWriter, id, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
