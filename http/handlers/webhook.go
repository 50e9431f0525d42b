package handlers

import (
	"net/http"

	"school-payment-service/errors"
	"school-payment-service/http/response"
	"school-payment-service/logger"
	"school-payment-service/services"
	"school-payment-service/utils"
)

// Webhook receives a provider notification.
// POST /api/webhook
//
// Known and unknown orders are both acknowledged with 200 so the provider
// stops retrying; malformed payloads get 400, bodies over the size cap 413
// and storage failures 500. Unreadable bodies are audited before rejection.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := utils.ReadBody(w, r)
	if err != nil {
		_, err = h.Webhooks.RecordUnreadable(r.Context(), body, err)
		response.Error(w, err)
		return
	}

	res, err := h.Webhooks.Ingest(r.Context(), body)
	if err != nil {
		response.Error(w, err)
		return
	}

	message := "Webhook processed"
	if res.Outcome == services.OutcomeOrderNotFound {
		logger.Warn("webhook %s acknowledged without a matching order", res.LogID)
		message = "Webhook recorded, order not found"
	}
	response.SuccessResponse(w, http.StatusOK, message, res)
}

// WebhookLogs lists audit entries, newest first.
// GET /api/webhook/logs?page=1&limit=10
func (h *Handler) WebhookLogs(w http.ResponseWriter, r *http.Request) {
	page, limit, err := utils.ParsePagination(r)
	if err != nil {
		response.Error(w, errors.E(errors.Invalid, err.Error(), err))
		return
	}

	logs, p, err := h.Audit.List(r.Context(), page, limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Paginated(w, logs, p)
}
