package handlers

import (
	"context"
	"io"

	"school-payment-service/models"
	"school-payment-service/services"
)

// WebhookIngester is implemented by services.WebhookService.
type WebhookIngester interface {
	Ingest(ctx context.Context, body []byte) (*services.IngestResult, error)
	RecordUnreadable(ctx context.Context, partial []byte, cause error) (*services.IngestResult, error)
}

// AuditReader is implemented by services.AuditService.
type AuditReader interface {
	List(ctx context.Context, page, limit int) ([]models.WebhookLog, models.Pagination, error)
}

// TransactionReader is implemented by services.TransactionService.
type TransactionReader interface {
	List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error)
	Status(ctx context.Context, customOrderID string) (*services.TransactionStatus, error)
	Receipt(ctx context.Context, customOrderID string, w io.Writer) error
	Export(ctx context.Context, f models.TransactionFilter, w io.Writer) error
}

// PaymentGateway is implemented by services.PaymentService.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, trusteeID string, req services.CreatePaymentRequest) (*services.CreatePaymentResult, error)
	CheckStatus(ctx context.Context, collectRequestID string) (*services.PaymentStatusResult, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds the services behind the HTTP API.
type Handler struct {
	Webhooks     WebhookIngester
	Audit        AuditReader
	Transactions TransactionReader
	Payments     PaymentGateway
	DB           Pinger
}
