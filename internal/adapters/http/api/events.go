// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/randommarket/internal/domain/catalog"
	"github.com/okian/randommarket/internal/domain/model"
)

// EventsDependencies exposes the current catalog.
type EventsDependencies interface {
	Events(ctx context.Context) ([]model.Event, error)
	RefreshEvents(ctx context.Context) error
}

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventsDependencies
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventsDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventsResponse struct {
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

// HandleGetEvents handles GET /events requests
func (h *EventsHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.writeEvents(w, r, op)
}

// HandleRefresh handles POST /events/refresh. The source is read right away;
// on failure the previous catalog stays in place.
func (h *EventsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh_events"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.RefreshEvents(r.Context()); err != nil {
		if errors.Is(err, catalog.ErrNoEvents) {
			writeError(w, http.StatusUnprocessableEntity, "no_events", WrapKind(op, ErrUnprocessable, err))
			return
		}
		writeError(w, http.StatusBadGateway, "refresh_failed", Wrap(op, err))
		return
	}
	h.writeEvents(w, r, op)
}

func (h *EventsHandler) writeEvents(w http.ResponseWriter, r *http.Request, op string) {
	events, err := h.deps.Events(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Count: len(events), Events: events})
}
