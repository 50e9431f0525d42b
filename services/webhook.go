package services

import (
	"context"
	"encoding/json"
	"net/http"

	"school-payment-service/errors"
	"school-payment-service/logger"
	"school-payment-service/models"
	"school-payment-service/services/webhook"
)

// IngestResult describes one processed notification. LogID is set whenever
// the audit write succeeded, including for malformed payloads.
type IngestResult struct {
	LogID   string             `json:"webhook_log_id"`
	Outcome Outcome            `json:"outcome,omitempty"`
	Event   *models.OrderEvent `json:"-"`
}

// WebhookService runs the inbound pipeline: audit, normalize, reconcile.
type WebhookService struct {
	audit      *AuditService
	normalizer *webhook.Normalizer
	recon      *ReconciliationService
	log        *logger.Logger
}

func NewWebhookService(audit *AuditService, normalizer *webhook.Normalizer, recon *ReconciliationService) *WebhookService {
	return &WebhookService{
		audit:      audit,
		normalizer: normalizer,
		recon:      recon,
		log:        logger.With("component", "webhook"),
	}
}

// Ingest records body in the audit log and then processes it. Nothing is
// interpreted when the audit write fails.
func (s *WebhookService) Ingest(ctx context.Context, body []byte) (*IngestResult, error) {
	entry, err := s.audit.Record(ctx, body)
	if err != nil {
		s.log.Error("audit write failed: %v", err)
		return nil, err
	}
	return s.process(ctx, entry.ID, body)
}

// unreadableBody is the audit entry stored for a request whose body could not
// be read in full.
type unreadableBody struct {
	Unreadable bool   `json:"_unreadable"`
	Reason     string `json:"reason"`
	BytesRead  int    `json:"bytes_read"`
	Truncated  bool   `json:"truncated"`
	Body       string `json:"body"`
}

// RecordUnreadable audits a request whose body failed to read, keeping the
// bytes received before the failure. It always returns an error: TooLarge
// when the size cap was hit, Invalid for other read failures, or Internal
// when the audit write itself fails.
func (s *WebhookService) RecordUnreadable(ctx context.Context, partial []byte, cause error) (*IngestResult, error) {
	var tooLarge *http.MaxBytesError
	truncated := errors.As(cause, &tooLarge)

	marker, err := json.Marshal(unreadableBody{
		Unreadable: true,
		Reason:     cause.Error(),
		BytesRead:  len(partial),
		Truncated:  truncated,
		Body:       string(partial),
	})
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to encode unreadable webhook", err)
	}

	entry, err := s.audit.Record(ctx, marker)
	if err != nil {
		s.log.Error("audit write failed: %v", err)
		return nil, err
	}
	res := &IngestResult{LogID: entry.ID}
	s.log.With("webhook_log", entry.ID).Warn("outcome=unreadable bytes_read=%d: %v", len(partial), cause)

	if truncated {
		return res, errors.E(errors.TooLarge, "request body too large", cause)
	}
	return res, errors.E(errors.Invalid, "failed to read request body", cause)
}

// Replay re-processes a stored notification without writing a new audit
// entry.
func (s *WebhookService) Replay(ctx context.Context, logID string) (*IngestResult, error) {
	entry, err := s.audit.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	return s.process(ctx, entry.ID, entry.Payload)
}

func (s *WebhookService) process(ctx context.Context, logID string, body []byte) (*IngestResult, error) {
	res := &IngestResult{LogID: logID}
	log := s.log.With("webhook_log", logID)

	ev, err := s.normalizer.Normalize(body)
	if err != nil {
		log.Warn("outcome=malformed: %v", err)
		if errors.Is(err, webhook.ErrMalformedPayload) {
			return res, errors.E(errors.Invalid, err.Error(), err)
		}
		return res, errors.E(errors.Internal, "failed to normalize webhook", err)
	}
	res.Event = &ev

	outcome, err := s.recon.Apply(ctx, ev, logID)
	if err != nil {
		log.Error("outcome=error custom_order_id=%s: %v", ev.ExternalOrderID, err)
		return res, err
	}
	res.Outcome = outcome
	log.Info("outcome=%s custom_order_id=%s provider=%s", outcome, ev.ExternalOrderID, ev.Provider)
	return res, nil
}
