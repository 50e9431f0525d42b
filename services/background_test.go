package services

import (
	"context"
	"testing"
	"time"

	"school-payment-service/models"
	"school-payment-service/services/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (p *blockingPublisher) Publish(_ context.Context, _ string, _ interface{}) error {
	p.started <- struct{}{}
	<-p.release
	return nil
}

func TestBackgroundWaitReturnsWhenIdle(t *testing.T) {
	var b background
	assert.NoError(t, b.wait(context.Background()))
}

func TestReconciliationDrainWaitsForPublishes(t *testing.T) {
	events := newBlockingPublisher()
	orders := newMemOrders(&models.Order{ID: "o1", CustomOrderID: strPtr("ORD123"), Status: models.StatusPending})
	s := NewReconciliationService(orders, events)

	outcome, err := s.Apply(context.Background(), ord123Event(), "log-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReconciled, outcome)
	<-events.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Drain(ctx), context.DeadlineExceeded)

	close(events.release)
	assert.NoError(t, s.Drain(context.Background()))
}

func TestPaymentDrainWaitsForPublishes(t *testing.T) {
	events := newBlockingPublisher()
	s := newTestPaymentService(newMemOrders(), events, &fakeGateway{name: gateway.ProviderEdviron})

	_, err := s.CreatePayment(context.Background(), "", validPaymentRequest())
	require.NoError(t, err)
	<-events.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Drain(ctx), context.DeadlineExceeded)

	close(events.release)
	assert.NoError(t, s.Drain(context.Background()))
}
