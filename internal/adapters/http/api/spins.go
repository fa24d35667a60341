// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/randommarket/internal/adapters/repository"
	"github.com/okian/randommarket/internal/domain/catalog"
	"github.com/okian/randommarket/internal/domain/engine"
	"github.com/okian/randommarket/internal/domain/selector"
)

// SpinDependencies drives and inspects spins.
type SpinDependencies interface {
	StartSpin(ctx context.Context) (engine.Spin, error)
	CancelSpin(ctx context.Context) bool
	Current(ctx context.Context) (engine.Snapshot, error)
	Recent(ctx context.Context, n int) ([]repository.SpinRecord, error)
}

// SpinsHandler handles spin requests.
type SpinsHandler struct {
	deps     SpinDependencies
	maxLimit int
}

// NewSpinsHandler creates a new spins handler.
func NewSpinsHandler(deps SpinDependencies, maxLimit int) *SpinsHandler {
	return &SpinsHandler{deps: deps, maxLimit: maxLimit}
}

// HandlePostSpin handles POST /spins requests. The spin runs in the
// background; its progress is on /spins/stream and /spins/current.
func (h *SpinsHandler) HandlePostSpin(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_spin"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	spin, err := h.deps.StartSpin(r.Context())
	switch {
	case err == nil:
		w.Header().Set("Location", "/spins/current")
		writeJSON(w, http.StatusAccepted, spin)
	case errors.Is(err, engine.ErrAlreadySpinning):
		writeError(w, http.StatusConflict, "already_spinning", WrapKind(op, ErrConflict, err))
	case errors.Is(err, catalog.ErrNoEvents), errors.Is(err, selector.ErrEmptySelection):
		writeError(w, http.StatusUnprocessableEntity, "no_events", WrapKind(op, ErrUnprocessable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// HandleCurrent handles GET and DELETE /spins/current requests.
func (h *SpinsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	const op = "api.current_spin"
	switch r.Method {
	case http.MethodGet:
		snap, err := h.deps.Current(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodDelete:
		// Cancelling when nothing spins is a no-op.
		h.deps.CancelSpin(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// HandleRecent handles GET /spins/recent?limit=N requests.
func (h *SpinsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_spins"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, defaultRecentLimit, h.maxLimit)
	if err != nil {
		writeLimitError(w, op, err)
		return
	}
	records, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if records == nil {
		records = []repository.SpinRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
