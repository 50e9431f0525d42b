package models

import (
	"encoding/json"
	"time"
)

// WebhookLog is an append-only audit record of one inbound notification.
type WebhookLog struct {
	ID        string          `json:"id"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload"`
}

// OrderEvent is the provider-independent form of a payment notification.
type OrderEvent struct {
	Provider          string    `json:"provider"`
	ExternalOrderID   string    `json:"external_order_id"`
	OrderAmount       float64   `json:"order_amount"`
	TransactionAmount float64   `json:"transaction_amount"`
	GatewayName       string    `json:"gateway_name"`
	BankReference     string    `json:"bank_reference"`
	RawStatus         string    `json:"raw_status"`
	PaymentMode       string    `json:"payment_mode"`
	PaymentDetails    string    `json:"payment_details"`
	Message           string    `json:"message"`
	PaymentTime       time.Time `json:"payment_time"`
	ErrorMessage      string    `json:"error_message"`
}
