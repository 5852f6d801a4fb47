package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/blazar-go/internal/backend"
	"github.com/yndnr/blazar-go/internal/telemetry/logger"
	"github.com/yndnr/blazar-go/internal/topology"
)

// Error codes returned in the envelope.
const (
	CodeBadRequest = "BZ-SYS-4000"
	CodeNotReady   = "BZ-SYS-5030"
)

// StatusSource reports the state of every backend shard session.
// *backend.Pool satisfies it.
type StatusSource interface {
	Statuses() []backend.Status
}

// Placer computes key placement. *topology.Topology satisfies it.
type Placer interface {
	PlaceAll(keys []string) []topology.Placement
}

// Config wires a Handler to the running proxy.
type Config struct {
	Status StatusSource
	// Placer backs GET /route. Nil leaves the route unregistered.
	Placer Placer
	Logger logger.Logger
}

// Handler serves the admin JSON endpoints.
type Handler struct {
	status StatusSource
	placer Placer
	logger logger.Logger
	mux    *http.ServeMux
}

// New creates a Handler. A nil logger discards output.
func New(cfg Config) *Handler {
	h := &Handler{
		status: cfg.Status,
		placer: cfg.Placer,
		logger: cfg.Logger,
		mux:    http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = logger.Discard()
	}

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /shards", h.handleShards)
	if h.placer != nil {
		h.mux.HandleFunc("GET /route", h.handleRoute)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.send(w, r, status, NewResponse(requestID(r), data))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	w.Header().Set("X-Error-Code", code)
	h.send(w, r, status, NewErrorResponse(requestID(r), code, message, details))
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, status int, body *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", body.RequestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithContext(r.Context()).Warn("write admin response", "error", err)
	}
}

// requestID prefers the id stored by the RequestID middleware.
func requestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
