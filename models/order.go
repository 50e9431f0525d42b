package models

import "time"

// Status is the canonical three-valued payment outcome.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

type StudentInfo struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Order is one payment request. CustomOrderID is the gateway-issued
// correlation id; it is nil until the upstream collect request succeeds.
type Order struct {
	ID            string      `json:"id"`
	SchoolID      string      `json:"school_id"`
	TrusteeID     string      `json:"trustee_id"`
	StudentInfo   StudentInfo `json:"student_info"`
	GatewayName   string      `json:"gateway_name"`
	Amount        float64     `json:"amount"`
	CustomOrderID *string     `json:"custom_order_id,omitempty"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderStatus holds the payment detail of the latest processed event for an
// order. CollectID references Order.ID.
type OrderStatus struct {
	ID                string     `json:"id"`
	CollectID         string     `json:"collect_id"`
	OrderAmount       float64    `json:"order_amount"`
	TransactionAmount float64    `json:"transaction_amount"`
	PaymentMode       string     `json:"payment_mode"`
	PaymentDetails    string     `json:"payment_details"`
	BankReference     string     `json:"bank_reference"`
	PaymentMessage    string     `json:"payment_message"`
	Status            string     `json:"status"`
	ErrorMessage      string     `json:"error_message"`
	PaymentTime       *time.Time `json:"payment_time,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
