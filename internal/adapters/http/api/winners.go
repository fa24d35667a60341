// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/randommarket/internal/adapters/repository"
)

// WinnersDependencies reads the winners board.
type WinnersDependencies interface {
	TopWinners(ctx context.Context, n int) ([]repository.WinnerEntry, error)
	Rank(ctx context.Context, eventID string) (repository.WinnerEntry, error)
}

// WinnersHandler serves the board and single-event lookups.
type WinnersHandler struct {
	deps     WinnersDependencies
	maxLimit int
}

// NewWinnersHandler creates a new winners handler
func NewWinnersHandler(deps WinnersDependencies, maxLimit int) *WinnersHandler {
	return &WinnersHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetWinners handles GET /winners?limit=N requests
func (h *WinnersHandler) HandleGetWinners(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_winners"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, defaultWinnersLimit, h.maxLimit)
	if err != nil {
		writeLimitError(w, op, err)
		return
	}
	entries, err := h.deps.TopWinners(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []repository.WinnerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetWinner handles GET /winners/{event_id}. Events that never won are 404.
func (h *WinnersHandler) HandleGetWinner(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_winner"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	eventID, ok := strings.CutPrefix(r.URL.Path, "/winners/")
	if !ok || eventID == "" || strings.ContainsRune(eventID, '/') {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	entry, err := h.deps.Rank(r.Context(), eventID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
