package kafka

const (
	EventPaymentReconciled = "payment.reconciled"
	EventPaymentOrphaned   = "payment.orphaned"
	EventPaymentInitiated  = "payment.initiated"
)

// PaymentEvent is the message published to the payments topic.
type PaymentEvent struct {
	Event         string  `json:"event"`
	OrderID       string  `json:"order_id,omitempty"`
	CustomOrderID string  `json:"custom_order_id"`
	Status        string  `json:"status,omitempty"`
	RawStatus     string  `json:"raw_status,omitempty"`
	Provider      string  `json:"provider,omitempty"`
	Gateway       string  `json:"gateway,omitempty"`
	Amount        float64 `json:"amount"`
	WebhookLogID  string  `json:"webhook_log_id,omitempty"`
	TS            string  `json:"ts"`
}
