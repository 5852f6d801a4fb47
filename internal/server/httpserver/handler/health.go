package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/blazar-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health. It answers as long as the process runs.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   info.Version,
		Commit:    info.Commit,
		BuildTime: info.BuildTime,
		GoVersion: info.GoVersion,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready: 200 when every shard session is
// connected, 503 otherwise. The body lists each shard either way.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	statuses := h.status.Statuses()
	ready := len(statuses) > 0
	for _, st := range statuses {
		if !st.Connected {
			ready = false
			break
		}
	}

	body := ReadyResponse{Ready: ready, Shards: statuses}
	if !ready {
		h.writeError(w, r, http.StatusServiceUnavailable, CodeNotReady, "backend shards unavailable", body)
		return
	}
	h.writeJSON(w, r, http.StatusOK, body)
}
