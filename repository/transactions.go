package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"school-payment-service/models"
)

const (
	DefaultSort  = "payment_time"
	DefaultOrder = "desc"
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// sortColumns whitelists the sortable fields of the transaction view.
var sortColumns = map[string]string{
	"payment_time":       "os.payment_time",
	"created_at":         "o.created_at",
	"order_amount":       "o.amount",
	"transaction_amount": "os.transaction_amount",
	"status":             "o.status",
	"school_id":          "o.school_id",
	"custom_order_id":    "o.custom_order_id",
	"gateway":            "o.gateway_name",
}

// IsSortable reports whether field may be used to order the transaction view.
func IsSortable(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// NormalizeFilter fills defaults and clamps paging. Unknown sort fields fall
// back to payment_time.
func NormalizeFilter(f models.TransactionFilter) models.TransactionFilter {
	if !IsSortable(f.Sort) {
		f.Sort = DefaultSort
	}
	f.Order = strings.ToLower(f.Order)
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = DefaultOrder
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

type transactionQuery struct {
	List      string
	ListArgs  []interface{}
	Count     string
	CountArgs []interface{}
}

// buildTransactionQuery renders the page and count statements for f, which
// must already be normalized.
func buildTransactionQuery(f models.TransactionFilter) transactionQuery {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if f.SchoolID != "" {
		args = append(args, f.SchoolID)
		where = append(where, fmt.Sprintf("o.school_id = $%d", len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	dir := strings.ToUpper(f.Order)
	list := `SELECT o.id, o.school_id, o.gateway_name, o.amount, os.transaction_amount, o.status,
		o.custom_order_id, os.payment_time, os.payment_mode, os.bank_reference,
		o.student_name, o.student_id, o.student_email, o.created_at
	FROM orders o
	LEFT JOIN order_status os ON os.collect_id = o.id` + whereClause +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, o.id %s LIMIT $%d OFFSET $%d",
			sortColumns[f.Sort], dir, dir, len(args)+1, len(args)+2)

	listArgs := make([]interface{}, 0, len(args)+2)
	listArgs = append(listArgs, args...)
	listArgs = append(listArgs, f.Limit, (f.Page-1)*f.Limit)

	return transactionQuery{
		List:      list,
		ListArgs:  listArgs,
		Count:     `SELECT COUNT(*) FROM orders o` + whereClause,
		CountArgs: args,
	}
}

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// List returns one page of the view and the total number of rows matching
// the filter regardless of the page window.
func (r *TransactionRepository) List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int, error) {
	q := buildTransactionQuery(NormalizeFilter(f))

	var total int
	if err := r.db.QueryRowContext(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, q.List, q.ListArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return out, total, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t             models.Transaction
		status        string
		txAmount      sql.NullFloat64
		customOrderID sql.NullString
		paymentTime   sql.NullTime
		paymentMode   sql.NullString
		bankReference sql.NullString
	)
	err := row.Scan(&t.CollectID, &t.SchoolID, &t.Gateway, &t.OrderAmount, &txAmount, &status,
		&customOrderID, &paymentTime, &paymentMode, &bankReference,
		&t.StudentInfo.Name, &t.StudentInfo.ID, &t.StudentInfo.Email, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	if txAmount.Valid {
		t.TransactionAmount = &txAmount.Float64
	}
	if customOrderID.Valid {
		t.CustomOrderID = &customOrderID.String
	}
	if paymentTime.Valid {
		t.PaymentTime = &paymentTime.Time
	}
	if paymentMode.Valid {
		t.PaymentMode = &paymentMode.String
	}
	if bankReference.Valid {
		t.BankReference = &bankReference.String
	}
	return &t, nil
}
