package api

import (
	"context"
	"net/http"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	store HealthChecker
}

// NewHealthHandler creates a new health handler. A nil checker reports the
// store as unchecked.
func NewHealthHandler(store HealthChecker) *HealthHandler {
	return &HealthHandler{store: store}
}

// HandleHealth handles GET /healthz. It answers 503 when the store is down.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "unchecked"})
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "ok"})
}
