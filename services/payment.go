package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"school-payment-service/errors"
	"school-payment-service/logger"
	"school-payment-service/models"
	"school-payment-service/repository"
	"school-payment-service/services/gateway"
	"school-payment-service/services/kafka"
	"school-payment-service/services/webhook"
	"school-payment-service/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CollectGateway is implemented by the clients in services/gateway.
type CollectGateway interface {
	Name() string
	CreateCollectRequest(ctx context.Context, req gateway.CollectRequest) (*gateway.CollectResponse, error)
	CollectRequestStatus(ctx context.Context, collectRequestID string) (*gateway.CollectStatus, error)
}

type CreatePaymentRequest struct {
	Amount       float64 `json:"amount" validate:"required,min=1"`
	StudentName  string  `json:"student_name" validate:"required"`
	StudentID    string  `json:"student_id" validate:"required"`
	StudentEmail string  `json:"student_email" validate:"required,email"`
	CallbackURL  string  `json:"callback_url" validate:"omitempty,url"`
	Gateway      string  `json:"gateway" validate:"omitempty,oneof=edviron razorpay"`
}

type CreatePaymentResult struct {
	OrderID       string  `json:"order_id"`
	CustomOrderID string  `json:"custom_order_id"`
	PaymentURL    string  `json:"payment_url,omitempty"`
	Amount        float64 `json:"amount"`
	Gateway       string  `json:"gateway"`
}

type PaymentStatusResult struct {
	CustomOrderID string          `json:"custom_order_id"`
	Status        models.Status   `json:"status"`
	RawStatus     string          `json:"raw_status"`
	Amount        float64         `json:"amount"`
	Details       json.RawMessage `json:"details,omitempty"`
}

type PaymentConfig struct {
	SchoolID       string
	CallbackURL    string
	DefaultGateway string
}

// PaymentService creates payment links and polls their status upstream.
type PaymentService struct {
	orders   OrderStore
	gateways map[string]CollectGateway
	events   EventPublisher
	cfg      PaymentConfig
	validate *validator.Validate
	spawn    func(func())
	tasks    background
	log      *logger.Logger
}

func NewPaymentService(orders OrderStore, events EventPublisher, cfg PaymentConfig, gateways ...CollectGateway) *PaymentService {
	s := &PaymentService{
		orders:   orders,
		gateways: make(map[string]CollectGateway, len(gateways)),
		events:   events,
		cfg:      cfg,
		validate: utils.NewValidator(),
		log:      logger.With("component", "payments"),
	}
	s.spawn = s.tasks.spawn
	for _, g := range gateways {
		s.gateways[g.Name()] = g
	}
	if s.cfg.DefaultGateway == "" {
		s.cfg.DefaultGateway = gateway.ProviderEdviron
	}
	return s
}

// Drain waits for in-flight payment.initiated publishes.
func (s *PaymentService) Drain(ctx context.Context) error {
	return s.tasks.wait(ctx)
}

// Validate checks a create-payment request.
func (s *PaymentService) Validate(req CreatePaymentRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return errors.E(errors.Invalid, utils.ValidationMessage(err), err)
	}
	return nil
}

// CreatePayment asks the provider for a collect request first and persists
// the order only once the provider has accepted it.
func (s *PaymentService) CreatePayment(ctx context.Context, trusteeID string, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	gw, err := s.gateway(req.Gateway)
	if err != nil {
		return nil, err
	}
	callback := req.CallbackURL
	if callback == "" {
		callback = s.cfg.CallbackURL
	}

	orderID := uuid.NewString()
	resp, err := gw.CreateCollectRequest(ctx, gateway.CollectRequest{
		Amount:      req.Amount,
		CallbackURL: callback,
		Receipt:     "rcpt_" + strings.ReplaceAll(orderID, "-", "")[:20],
	})
	if err != nil {
		s.log.Error("create collect request via %s: %v", gw.Name(), err)
		return nil, errors.E(errors.Upstream, "failed to create payment", err)
	}

	if trusteeID == "" {
		trusteeID = "default_trustee"
	}
	customID := resp.CollectRequestID
	order := &models.Order{
		ID:        orderID,
		SchoolID:  s.cfg.SchoolID,
		TrusteeID: trusteeID,
		StudentInfo: models.StudentInfo{
			Name:  req.StudentName,
			ID:    req.StudentID,
			Email: req.StudentEmail,
		},
		GatewayName:   displayName(gw.Name()),
		Amount:        req.Amount,
		CustomOrderID: &customID,
		Status:        models.StatusPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return nil, errors.E(errors.Conflict, "collect request id is already linked to an order", err)
		}
		return nil, errors.E(errors.Internal, "failed to save order", err)
	}

	if s.events != nil {
		evt := kafka.PaymentEvent{
			Event:         kafka.EventPaymentInitiated,
			OrderID:       order.ID,
			CustomOrderID: customID,
			Status:        string(models.StatusPending),
			Provider:      gw.Name(),
			Amount:        req.Amount,
			TS:            time.Now().UTC().Format(time.RFC3339),
		}
		bg := context.WithoutCancel(ctx)
		s.spawn(func() {
			if err := s.events.Publish(bg, customID, evt); err != nil {
				s.log.Warn("failed to publish payment.initiated event: %v", err)
			}
		})
	}

	return &CreatePaymentResult{
		OrderID:       order.ID,
		CustomOrderID: customID,
		PaymentURL:    resp.PaymentURL,
		Amount:        req.Amount,
		Gateway:       gw.Name(),
	}, nil
}

// CheckStatus polls the provider and updates only the order's canonical
// status.
func (s *PaymentService) CheckStatus(ctx context.Context, collectRequestID string) (*PaymentStatusResult, error) {
	order, err := s.orders.FindByCustomOrderID(ctx, collectRequestID)
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to look up order", err)
	}
	if order == nil {
		return nil, errors.NewNotFoundError("order not found")
	}

	gw, err := s.gateway(strings.ToLower(order.GatewayName))
	if err != nil {
		gw, err = s.gateway("")
		if err != nil {
			return nil, err
		}
	}

	st, err := gw.CollectRequestStatus(ctx, collectRequestID)
	if err != nil {
		s.log.Error("collect request status via %s: %v", gw.Name(), err)
		return nil, errors.E(errors.Upstream, "failed to check payment status", err)
	}

	mapped := webhook.MapStatus(gw.Name(), st.Status)
	if _, err := s.orders.UpdateStatus(ctx, collectRequestID, mapped); err != nil {
		return nil, errors.E(errors.Internal, "failed to update order status", err)
	}

	return &PaymentStatusResult{
		CustomOrderID: collectRequestID,
		Status:        mapped,
		RawStatus:     st.Status,
		Amount:        st.Amount,
		Details:       st.Details,
	}, nil
}

func (s *PaymentService) gateway(name string) (CollectGateway, error) {
	if name == "" {
		name = s.cfg.DefaultGateway
	}
	gw, ok := s.gateways[name]
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("payment gateway %q is not configured", name))
	}
	return gw, nil
}

func displayName(provider string) string {
	switch provider {
	case gateway.ProviderEdviron:
		return "Edviron"
	case gateway.ProviderRazorpay:
		return "Razorpay"
	}
	return provider
}
