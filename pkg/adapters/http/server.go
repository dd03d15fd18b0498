package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// Inspector is the read side of a live container. *tether.Provider satisfies it.
type Inspector interface {
	ID() string
	Version() uint64
	Snapshot() domain.Fields
	Journal() ports.Journal
}

// ActionFunc dispatches a named action with JSON arguments.
type ActionFunc func(ctx context.Context, args json.RawMessage) error

// Server exposes a container over HTTP.
type Server struct {
	Inspector Inspector
	Streams   *StreamManager

	actions map[string]ActionFunc
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithActions enables POST /actions/{name} for the given actions.
func WithActions(actions map[string]ActionFunc) Option {
	return func(s *Server) {
		s.actions = actions
	}
}

// WithMetrics mounts h (typically promhttp.Handler()) on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams enables GET /events. The same manager's Hooks must be attached to the store.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the request logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the container.
func NewHandler(inspector Inspector, opts ...Option) http.Handler {
	server := &Server{
		Inspector: inspector,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/state", server.GetState)
	r.Get("/actions", server.ListActions)
	if server.actions != nil {
		r.Post("/actions/{name}", server.Dispatch)
	}
	if server.Streams != nil {
		r.Get("/events", server.SubscribeEvents)
	}
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	StoreID string        `json:"store_id"`
	Version uint64        `json:"version"`
	State   domain.Fields `json:"state"`
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, StateResponse{
		StoreID: s.Inspector.ID(),
		Version: s.Inspector.Version(),
		State:   s.Inspector.Snapshot(),
	})
}

// ListActions handles the GET /actions request: the journal of the container.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	journal := s.Inspector.Journal()
	if journal == nil {
		http.Error(w, "No journal attached", http.StatusNotFound)
		return
	}

	records, err := journal.List(r.Context(), s.Inspector.ID())
	if err != nil {
		http.Error(w, fmt.Sprintf("Journal error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Journal list failed", "error", err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, records)
}

// Dispatch handles the POST /actions/{name} request. The body holds the JSON arguments.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	action, ok := s.actions[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown action %q", name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		body = []byte("null")
	}

	err = action(r.Context(), json.RawMessage(body))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAction):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		s.logger.Warn("Dispatch failed", "action", name, "error", err)
		return
	case errors.Is(err, domain.ErrSubscriber):
		// The state was committed; only observers failed.
		s.logger.Warn("Dispatch: subscribers failed", "action", name, "error", err)
	case errors.Is(err, domain.ErrClosed):
		http.Error(w, err.Error(), http.StatusGone)
		return
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.GetState(w, r)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"app":      "tether-http",
		"version":  strings.TrimSpace(tether.Version),
		"store_id": s.Inspector.ID(),
	})
}

// SubscribeEvents handles the GET /events request (SSE of committed changes).
// The optional watch query parameter keeps only commits touching one of the listed fields.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	storeID := s.Inspector.ID()
	ch, cancel := s.Streams.Subscribe(storeID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to store updates", "store_id", storeID)

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		for _, field := range strings.Split(watch, ",") {
			watchList = append(watchList, strings.TrimSpace(field))
		}
	}

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "store_id", storeID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !msg.touches(watchList) {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Warn("SSE: Failed to encode commit", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: commit\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}
