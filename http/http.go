package http

import (
	"net/http"

	"school-payment-service/http/handlers"
	"school-payment-service/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter configures all HTTP routes and middleware. Everything under /api
// except the provider webhook requires the bearer token.
func NewRouter(h *handlers.Handler, apiToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(middleware.EnableCORS)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Provider callbacks carry no bearer token
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(apiToken))

			r.Get("/webhook/logs", h.WebhookLogs)

			r.Get("/transactions", h.GetTransactions)
			r.Get("/transactions/export", h.ExportTransactions)
			r.Get("/transactions/school/{schoolId}", h.GetTransactionsBySchool)

			r.Get("/transaction-status/{customOrderId}", h.GetTransactionStatus)
			r.Get("/transaction-status/{customOrderId}/receipt", h.DownloadReceipt)

			r.Post("/payments/create-payment", h.CreatePayment)
			r.Get("/payments/payment-status/{collectRequestId}", h.PaymentStatus)
		})
	})

	return r
}
