package api

import (
	"context"
	"net/http"
)

// StatsProvider reports service statistics: tweet count, store driver, event
// pipeline counters.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler. A nil provider serves {}.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	var stats map[string]interface{}
	if h.provider != nil {
		stats = h.provider.GetStats(r.Context())
	}
	if stats == nil {
		stats = map[string]interface{}{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
