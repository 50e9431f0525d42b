package models

import "time"

// Transaction is one row of the orders LEFT JOIN order_status view. Fields
// sourced from order_status are nil for orders that have no status yet.
type Transaction struct {
	CollectID         string      `json:"collect_id"`
	SchoolID          string      `json:"school_id"`
	Gateway           string      `json:"gateway"`
	OrderAmount       float64     `json:"order_amount"`
	TransactionAmount *float64    `json:"transaction_amount"`
	Status            Status      `json:"status"`
	CustomOrderID     *string     `json:"custom_order_id"`
	PaymentTime       *time.Time  `json:"payment_time"`
	PaymentMode       *string     `json:"payment_mode"`
	BankReference     *string     `json:"bank_reference"`
	StudentInfo       StudentInfo `json:"student_info"`
	CreatedAt         time.Time   `json:"created_at"`
}

type TransactionFilter struct {
	Status   string
	SchoolID string
	Sort     string
	Order    string
	Page     int
	Limit    int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type TransactionPage struct {
	Data       []Transaction `json:"data"`
	Pagination Pagination    `json:"pagination"`
}
