package handler

import (
	"net/http"
)

// handleShards handles GET /shards. Unlike /ready it always answers 200.
func (h *Handler) handleShards(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, ShardsResponse{Shards: h.status.Statuses()})
}

// handleRoute handles GET /route?key=K[&key=K...].
func (h *Handler) handleRoute(w http.ResponseWriter, r *http.Request) {
	keys := r.URL.Query()["key"]
	if len(keys) == 0 {
		h.writeError(w, r, http.StatusBadRequest, CodeBadRequest, "missing key parameter", nil)
		return
	}
	placements := h.placer.PlaceAll(keys)
	h.logger.WithContext(r.Context()).Debug("route lookup", "keys", len(keys))
	h.writeJSON(w, r, http.StatusOK, RouteResponse{Placements: placements})
}
