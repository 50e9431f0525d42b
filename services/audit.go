package services

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"school-payment-service/errors"
	"school-payment-service/models"
)

// AuditService records every inbound notification before it is interpreted.
type AuditService struct {
	logs WebhookLogStore
	now  func() time.Time
}

func NewAuditService(logs WebhookLogStore) *AuditService {
	return &AuditService{logs: logs, now: time.Now}
}

// Record stores body verbatim. A body that is not valid JSON is stored as a
// JSON string so that nothing is ever rejected on shape.
func (a *AuditService) Record(ctx context.Context, body []byte) (*models.WebhookLog, error) {
	payload := json.RawMessage(bytes.TrimSpace(body))
	if len(payload) == 0 || !json.Valid(payload) {
		encoded, err := json.Marshal(string(body))
		if err != nil {
			return nil, errors.E(errors.Internal, "failed to encode webhook payload", err)
		}
		payload = encoded
	}

	entry, err := a.logs.Insert(ctx, payload, a.now())
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to record webhook", err)
	}
	return entry, nil
}

func (a *AuditService) List(ctx context.Context, page, limit int) ([]models.WebhookLog, models.Pagination, error) {
	logs, total, err := a.logs.List(ctx, page, limit)
	if err != nil {
		return nil, models.Pagination{}, errors.E(errors.Internal, "failed to list webhook logs", err)
	}
	return logs, models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (a *AuditService) Get(ctx context.Context, id string) (*models.WebhookLog, error) {
	entry, err := a.logs.Get(ctx, id)
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to load webhook log", err)
	}
	if entry == nil {
		return nil, errors.NewNotFoundError("webhook log not found")
	}
	return entry, nil
}
