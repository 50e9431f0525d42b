package handlers

import (
	"net/http"

	"school-payment-service/errors"
	"school-payment-service/http/response"
	"school-payment-service/services"
	"school-payment-service/utils"

	"github.com/go-chi/chi/v5"
)

// CreatePayment creates a collect request upstream and a pending order.
// POST /api/payments/create-payment
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePaymentRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		response.Error(w, errors.E(errors.Invalid, "Invalid request", err))
		return
	}

	res, err := h.Payments.CreatePayment(r.Context(), r.Header.Get("X-Trustee-Id"), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.SuccessResponse(w, http.StatusCreated, "Payment link created", res)
}

// PaymentStatus polls the provider and refreshes the order status.
// GET /api/payments/payment-status/{collectRequestId}
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.Payments.CheckStatus(r.Context(), chi.URLParam(r, "collectRequestId"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.SuccessResponse(w, http.StatusOK, "Payment status retrieved", res)
}
