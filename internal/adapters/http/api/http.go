// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/randommarket/internal/adapters/repository"
)

const (
	defaultMaxLimit     = 100
	defaultWinnersLimit = 10
	defaultRecentLimit  = 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventsDependencies
	SpinDependencies
	StreamDependencies
	WinnersDependencies
	StatsProvider
}

// Server wires HTTP routes for the spin API.
type Server struct {
	healthHandler  *HealthHandler
	eventsHandler  *EventsHandler
	spinsHandler   *SpinsHandler
	streamHandler  *StreamHandler
	winnersHandler *WinnersHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of list endpoints.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		eventsHandler:  NewEventsHandler(deps),
		spinsHandler:   NewSpinsHandler(deps, maxLimit),
		streamHandler:  NewStreamHandler(deps),
		winnersHandler: NewWinnersHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.healthHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleGetEvents, "events"))
	mux.HandleFunc("/events/refresh", MetricsMiddleware(s.eventsHandler.HandleRefresh, "events_refresh"))
	mux.HandleFunc("/spins", MetricsMiddleware(s.spinsHandler.HandlePostSpin, "spins"))
	mux.HandleFunc("/spins/current", MetricsMiddleware(s.spinsHandler.HandleCurrent, "spins_current"))
	mux.HandleFunc("/spins/recent", MetricsMiddleware(s.spinsHandler.HandleRecent, "spins_recent"))
	mux.HandleFunc("/spins/stream", MetricsMiddleware(s.streamHandler.HandleStream, "spins_stream"))
	mux.HandleFunc("/winners", MetricsMiddleware(s.winnersHandler.HandleGetWinners, "winners"))
	mux.HandleFunc("/winners/", MetricsMiddleware(s.winnersHandler.HandleGetWinner, "winner"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeLimitError maps a parseLimit failure.
func writeLimitError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrLimitExceeded) {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrLimitExceeded))
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound)
}
