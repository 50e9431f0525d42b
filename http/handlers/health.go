package handlers

import (
	"context"
	"net/http"
	"time"

	"school-payment-service/http/response"
)

// Health reports whether the database is reachable.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		response.SendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
		return
	}
	response.SendJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
