package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"school-payment-service/models"

	"github.com/google/uuid"
)

type WebhookLogRepository struct {
	db *sql.DB
}

func NewWebhookLogRepository(db *sql.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

// Insert appends one audit entry. payload must be valid JSON; it is sent as
// text since lib/pq encodes []byte as bytea.
func (r *WebhookLogRepository) Insert(ctx context.Context, payload json.RawMessage, at time.Time) (*models.WebhookLog, error) {
	entry := &models.WebhookLog{
		ID:        uuid.NewString(),
		EventTime: at.UTC(),
		Payload:   payload,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO webhook_logs (id, event_time, payload) VALUES ($1, $2, $3)`,
		entry.ID, entry.EventTime, string(payload))
	if err != nil {
		return nil, fmt.Errorf("insert webhook log: %w", err)
	}
	return entry, nil
}

// List returns a page of entries, newest first, and the total entry count.
func (r *WebhookLogRepository) List(ctx context.Context, page, limit int) ([]models.WebhookLog, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count webhook logs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_time, payload FROM webhook_logs ORDER BY event_time DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.WebhookLog, 0, limit)
	for rows.Next() {
		var (
			entry   models.WebhookLog
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.EventTime, &payload); err != nil {
			return nil, 0, fmt.Errorf("scan webhook log: %w", err)
		}
		entry.Payload = payload
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list webhook logs: %w", err)
	}
	return logs, total, nil
}

// Get returns nil, nil for an unknown id.
func (r *WebhookLogRepository) Get(ctx context.Context, id string) (*models.WebhookLog, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var (
		entry   models.WebhookLog
		payload []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_time, payload FROM webhook_logs WHERE id = $1`, id,
	).Scan(&entry.ID, &entry.EventTime, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook log: %w", err)
	}
	entry.Payload = payload
	return &entry, nil
}
