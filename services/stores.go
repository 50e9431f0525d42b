package services

import (
	"context"
	"encoding/json"
	"time"

	"school-payment-service/models"
)

// OrderStore is implemented by repository.OrderRepository.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByCustomOrderID(ctx context.Context, customOrderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, customOrderID string, status models.Status) (bool, error)
	ApplyEvent(ctx context.Context, orderID string, st *models.OrderStatus, status models.Status, gateway string) error
	GetStatus(ctx context.Context, orderID string) (*models.OrderStatus, error)
}

// WebhookLogStore is implemented by repository.WebhookLogRepository.
type WebhookLogStore interface {
	Insert(ctx context.Context, payload json.RawMessage, at time.Time) (*models.WebhookLog, error)
	List(ctx context.Context, page, limit int) ([]models.WebhookLog, int, error)
	Get(ctx context.Context, id string) (*models.WebhookLog, error)
}

// TransactionStore is implemented by repository.TransactionRepository.
type TransactionStore interface {
	List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int, error)
}

// EventPublisher is implemented by kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
