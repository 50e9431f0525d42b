package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"school-payment-service/models"
	"school-payment-service/services/gateway"
)

// memOrders is an in-memory OrderStore. ApplyEvent holds the lock for both
// writes, mirroring the single transaction of the SQL store.
type memOrders struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	statuses  map[string]*models.OrderStatus
	findErr   error
	applyErr  error
	createErr error
	finds     int
}

func newMemOrders(orders ...*models.Order) *memOrders {
	m := &memOrders{orders: map[string]*models.Order{}, statuses: map[string]*models.OrderStatus{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%d", len(m.orders)+1)
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrders) FindByCustomOrderID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, o := range m.orders {
		if o.CustomOrderID != nil && *o.CustomOrderID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, status models.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CustomOrderID != nil && *o.CustomOrderID == id {
			o.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrders) ApplyEvent(_ context.Context, orderID string, st *models.OrderStatus, status models.Status, gw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	cp := *st
	cp.CollectID = orderID
	if prev, ok := m.statuses[orderID]; ok {
		cp.ID = prev.ID
	} else {
		cp.ID = "status-" + orderID
	}
	m.statuses[orderID] = &cp
	m.orders[orderID].Status = status
	m.orders[orderID].GatewayName = gw
	return nil
}

func (m *memOrders) GetStatus(_ context.Context, orderID string) (*models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[orderID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *memOrders) order(id string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

type memLogs struct {
	mu        sync.Mutex
	entries   []models.WebhookLog
	insertErr error
}

func (m *memLogs) Insert(_ context.Context, payload json.RawMessage, at time.Time) (*models.WebhookLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	e := models.WebhookLog{ID: fmt.Sprintf("log-%d", len(m.entries)+1), EventTime: at, Payload: payload}
	m.entries = append(m.entries, e)
	return &e, nil
}

func (m *memLogs) List(_ context.Context, page, limit int) ([]models.WebhookLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := append([]models.WebhookLog(nil), m.entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EventTime.After(sorted[j].EventTime) })
	start := (page - 1) * limit
	if start > len(sorted) {
		start = len(sorted)
	}
	end := start + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end], len(sorted), nil
}

func (m *memLogs) Get(_ context.Context, id string) (*models.WebhookLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, value)
	return nil
}

func (p *recordingPublisher) all() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interface{}(nil), p.events...)
}

type fakeGateway struct {
	name      string
	createErr error
	statusErr error
	status    *gateway.CollectStatus
	created   []gateway.CollectRequest
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateCollectRequest(_ context.Context, req gateway.CollectRequest) (*gateway.CollectResponse, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &gateway.CollectResponse{CollectRequestID: fmt.Sprintf("CR-%d", len(g.created)), PaymentURL: "https://pay.example/CR"}, nil
}

func (g *fakeGateway) CollectRequestStatus(context.Context, string) (*gateway.CollectStatus, error) {
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.status, nil
}

func strPtr(s string) *string { return &s }

func inline(f func()) { f() }
