package handler

import (
	"net/http"

	"github.com/cardloop/card-courier/internal/queue"
)

// DispatchHandler serves a human-readable JSON snapshot of the delivery
// pipeline. Raw Prometheus metrics (counters, histograms) are available at
// /metrics via promhttp and are separate from this endpoint.
type DispatchHandler struct {
	q *queue.Queue
}

func NewDispatchHandler(q *queue.Queue) *DispatchHandler {
	return &DispatchHandler{q: q}
}

// GetDispatch handles GET /api/v1/dispatch
func (h *DispatchHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": h.q.Depth(),
	})
}
