package services

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"school-payment-service/errors"
	"school-payment-service/models"
	"school-payment-service/services/kafka"
	"school-payment-service/services/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecon(orders OrderStore, events EventPublisher) *ReconciliationService {
	s := NewReconciliationService(orders, events)
	s.spawn = inline
	return s
}

func ord123Event() models.OrderEvent {
	return models.OrderEvent{
		Provider:          webhook.ProviderEdviron,
		ExternalOrderID:   "ORD123",
		OrderAmount:       1000,
		TransactionAmount: 1000,
		GatewayName:       "X",
		RawStatus:         "SUCCESS",
		PaymentMode:       "upi",
		PaymentTime:       time.Date(2025, 4, 23, 8, 14, 21, 0, time.UTC),
	}
}

func TestApplyReconcilesExistingOrder(t *testing.T) {
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123"), Status: models.StatusPending, GatewayName: "Edviron"})
	events := &recordingPublisher{}
	s := newTestRecon(orders, events)

	outcome, err := s.Apply(context.Background(), ord123Event(), "log-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReconciled, outcome)

	o := orders.order("o1")
	assert.Equal(t, models.StatusSuccess, o.Status)
	assert.Equal(t, "X", o.GatewayName)
	require.Len(t, orders.statuses, 1)
	assert.Equal(t, 1000.0, orders.statuses["o1"].TransactionAmount)
	assert.Equal(t, "SUCCESS", orders.statuses["o1"].Status)

	published := events.all()
	require.Len(t, published, 1)
	evt := published[0].(kafka.PaymentEvent)
	assert.Equal(t, kafka.EventPaymentReconciled, evt.Event)
	assert.Equal(t, "success", evt.Status)
	assert.Equal(t, "log-1", evt.WebhookLogID)
}

func TestApplyReplayIsIdempotent(t *testing.T) {
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123"), Status: models.StatusPending})
	s := newTestRecon(orders, nil)

	_, err := s.Apply(context.Background(), ord123Event(), "log-1")
	require.NoError(t, err)
	firstOrder := orders.order("o1")
	firstStatus, _ := orders.GetStatus(context.Background(), "o1")

	_, err = s.Apply(context.Background(), ord123Event(), "log-2")
	require.NoError(t, err)
	secondStatus, _ := orders.GetStatus(context.Background(), "o1")

	assert.Equal(t, firstOrder, orders.order("o1"))
	assert.Equal(t, firstStatus, secondStatus)
	assert.Len(t, orders.statuses, 1)
}

func TestApplyOverwritesWithoutMerging(t *testing.T) {
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123")})
	s := newTestRecon(orders, nil)

	first := ord123Event()
	first.BankReference = "YESBNK222"
	first.Message = "payment success"
	_, err := s.Apply(context.Background(), first, "log-1")
	require.NoError(t, err)

	second := ord123Event()
	second.RawStatus = "USER_DROPPED"
	_, err = s.Apply(context.Background(), second, "log-2")
	require.NoError(t, err)

	st, _ := orders.GetStatus(context.Background(), "o1")
	assert.Equal(t, "", st.BankReference)
	assert.Equal(t, "", st.PaymentMessage)
	assert.Equal(t, models.StatusFailed, orders.order("o1").Status)
}

func TestApplyUnknownOrderIsAcknowledged(t *testing.T) {
	orders := newMemOrders()
	events := &recordingPublisher{}
	s := newTestRecon(orders, events)

	outcome, err := s.Apply(context.Background(), ord123Event(), "log-9")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrderNotFound, outcome)
	assert.Empty(t, orders.statuses)

	published := events.all()
	require.Len(t, published, 1)
	assert.Equal(t, kafka.EventPaymentOrphaned, published[0].(kafka.PaymentEvent).Event)
}

func TestApplyStorageErrorsAreInternal(t *testing.T) {
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123")})
	orders.applyErr = stderrors.New("connection refused")
	s := newTestRecon(orders, nil)

	_, err := s.Apply(context.Background(), ord123Event(), "log-1")
	require.Error(t, err)
	assert.Equal(t, errors.Internal, errors.KindOf(err))

	orders.applyErr = nil
	orders.findErr = stderrors.New("connection refused")
	_, err = s.Apply(context.Background(), ord123Event(), "log-1")
	assert.Equal(t, errors.Internal, errors.KindOf(err))
}

func TestApplyRunsSuccessHookOnlyOnSuccess(t *testing.T) {
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123")})
	s := newTestRecon(orders, nil)
	var notified []string
	s.OnSuccess(func(_ context.Context, id string) { notified = append(notified, id) })

	failed := ord123Event()
	failed.RawStatus = "FAILED"
	_, err := s.Apply(context.Background(), failed, "log-1")
	require.NoError(t, err)
	assert.Empty(t, notified)

	_, err = s.Apply(context.Background(), ord123Event(), "log-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD123"}, notified)
}

// Concurrent events for one order resolve as last write wins; the status
// record and the order always come from the same event.
func TestApplyConcurrentEventsLastWriteWins(t *testing.T) {
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123")})
	s := newTestRecon(orders, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := ord123Event()
			if i%2 == 1 {
				ev.RawStatus = "FAILED"
			}
			_, err := s.Apply(context.Background(), ev, "log")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, _ := orders.GetStatus(context.Background(), "o1")
	assert.Equal(t, webhook.MapStatus(webhook.ProviderEdviron, st.Status), orders.order("o1").Status)
	assert.Len(t, orders.statuses, 1)
}
