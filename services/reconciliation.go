package services

import (
	"context"
	"time"

	"school-payment-service/errors"
	"school-payment-service/logger"
	"school-payment-service/models"
	"school-payment-service/services/kafka"
	"school-payment-service/services/webhook"
)

// Outcome reports what Apply did with an event.
type Outcome string

const (
	OutcomeReconciled    Outcome = "reconciled"
	OutcomeOrderNotFound Outcome = "order_not_found"
)

// ReconciliationService applies canonical events to persisted orders.
type ReconciliationService struct {
	orders    OrderStore
	events    EventPublisher
	onSuccess func(ctx context.Context, customOrderID string)
	spawn     func(func())
	tasks     background
	log       *logger.Logger
}

// NewReconciliationService builds the engine. events may be nil.
func NewReconciliationService(orders OrderStore, events EventPublisher) *ReconciliationService {
	s := &ReconciliationService{
		orders: orders,
		events: events,
		log:    logger.With("component", "reconciliation"),
	}
	s.spawn = s.tasks.spawn
	return s
}

// Drain waits for in-flight event publishes and success callbacks. Work
// still running when ctx ends is abandoned.
func (s *ReconciliationService) Drain(ctx context.Context) error {
	return s.tasks.wait(ctx)
}

// OnSuccess registers fn to run, asynchronously, after an event moves an
// order to success.
func (s *ReconciliationService) OnSuccess(fn func(ctx context.Context, customOrderID string)) {
	s.onSuccess = fn
}

// Apply looks up the order named by ev and, if it exists, overwrites its
// status record and canonical status. A missing order is not an error.
func (s *ReconciliationService) Apply(ctx context.Context, ev models.OrderEvent, logID string) (Outcome, error) {
	order, err := s.orders.FindByCustomOrderID(ctx, ev.ExternalOrderID)
	if err != nil {
		return "", errors.E(errors.Internal, "failed to look up order", err)
	}
	if order == nil {
		s.log.Warn("order not found custom_order_id=%s provider=%s webhook_log=%s", ev.ExternalOrderID, ev.Provider, logID)
		s.publish(ctx, ev.ExternalOrderID, kafka.PaymentEvent{
			Event:         kafka.EventPaymentOrphaned,
			CustomOrderID: ev.ExternalOrderID,
			RawStatus:     ev.RawStatus,
			Provider:      ev.Provider,
			Gateway:       ev.GatewayName,
			Amount:        ev.TransactionAmount,
			WebhookLogID:  logID,
		})
		return OutcomeOrderNotFound, nil
	}

	status := webhook.MapStatus(ev.Provider, ev.RawStatus)
	paymentTime := ev.PaymentTime
	st := &models.OrderStatus{
		OrderAmount:       ev.OrderAmount,
		TransactionAmount: ev.TransactionAmount,
		PaymentMode:       ev.PaymentMode,
		PaymentDetails:    ev.PaymentDetails,
		BankReference:     ev.BankReference,
		PaymentMessage:    ev.Message,
		Status:            ev.RawStatus,
		ErrorMessage:      ev.ErrorMessage,
		PaymentTime:       &paymentTime,
	}
	if err := s.orders.ApplyEvent(ctx, order.ID, st, status, ev.GatewayName); err != nil {
		return "", errors.E(errors.Internal, "failed to apply payment event", err)
	}

	s.log.Info("order %s -> %s (raw=%s provider=%s)", ev.ExternalOrderID, status, ev.RawStatus, ev.Provider)
	s.publish(ctx, ev.ExternalOrderID, kafka.PaymentEvent{
		Event:         kafka.EventPaymentReconciled,
		OrderID:       order.ID,
		CustomOrderID: ev.ExternalOrderID,
		Status:        string(status),
		RawStatus:     ev.RawStatus,
		Provider:      ev.Provider,
		Gateway:       ev.GatewayName,
		Amount:        ev.TransactionAmount,
		WebhookLogID:  logID,
	})
	if status == models.StatusSuccess && s.onSuccess != nil {
		fn, id, bg := s.onSuccess, ev.ExternalOrderID, context.WithoutCancel(ctx)
		s.spawn(func() { fn(bg, id) })
	}
	return OutcomeReconciled, nil
}

// publish is best-effort and never blocks the caller.
func (s *ReconciliationService) publish(ctx context.Context, key string, evt kafka.PaymentEvent) {
	if s.events == nil {
		return
	}
	evt.TS = time.Now().UTC().Format(time.RFC3339)
	bg := context.WithoutCancel(ctx)
	s.spawn(func() {
		if err := s.events.Publish(bg, key, evt); err != nil {
			s.log.Warn("failed to publish %s event: %v", evt.Event, err)
		}
	})
}
