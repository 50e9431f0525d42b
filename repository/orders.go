package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"school-payment-service/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateOrder is returned by Create when custom_order_id is taken.
var ErrDuplicateOrder = errors.New("order with this custom_order_id already exists")

const uniqueViolation = "23505"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, school_id, trustee_id, student_name, student_id, student_email,
	gateway_name, amount, custom_order_id, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o        models.Order
		customID sql.NullString
		status   string
	)
	err := row.Scan(&o.ID, &o.SchoolID, &o.TrusteeID, &o.StudentInfo.Name, &o.StudentInfo.ID,
		&o.StudentInfo.Email, &o.GatewayName, &o.Amount, &customID, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customID.Valid {
		o.CustomOrderID = &customID.String
	}
	o.Status = models.Status(status)
	return &o, nil
}

// Create inserts a new order. ID and Status are filled in when empty.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = models.StatusPending
	}
	var customID sql.NullString
	if o.CustomOrderID != nil {
		customID = sql.NullString{String: *o.CustomOrderID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, school_id, trustee_id, student_name, student_id, student_email,
			gateway_name, amount, custom_order_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		o.ID, o.SchoolID, o.TrusteeID, o.StudentInfo.Name, o.StudentInfo.ID, o.StudentInfo.Email,
		o.GatewayName, o.Amount, customID, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// FindByCustomOrderID returns nil, nil when no order carries the id.
func (r *OrderRepository) FindByCustomOrderID(ctx context.Context, customOrderID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE custom_order_id = $1`, customOrderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", customOrderID, err)
	}
	return o, nil
}

// UpdateStatus sets only orders.status. It reports whether a row matched.
func (r *OrderRepository) UpdateStatus(ctx context.Context, customOrderID string, status models.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE custom_order_id = $2`,
		string(status), customOrderID)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return n > 0, nil
}

// ApplyEvent overwrites the order's status record and updates the order's
// canonical status and gateway in one transaction. Concurrent calls for the
// same order resolve as last commit wins.
func (r *OrderRepository) ApplyEvent(ctx context.Context, orderID string, st *models.OrderStatus, status models.Status, gateway string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.CollectID = orderID

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status (id, collect_id, order_amount, transaction_amount, payment_mode,
			payment_details, bank_reference, payment_message, status, error_message, payment_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (collect_id) DO UPDATE SET
			order_amount = EXCLUDED.order_amount,
			transaction_amount = EXCLUDED.transaction_amount,
			payment_mode = EXCLUDED.payment_mode,
			payment_details = EXCLUDED.payment_details,
			bank_reference = EXCLUDED.bank_reference,
			payment_message = EXCLUDED.payment_message,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			payment_time = EXCLUDED.payment_time,
			updated_at = NOW()`,
		st.ID, st.CollectID, st.OrderAmount, st.TransactionAmount, st.PaymentMode,
		st.PaymentDetails, st.BankReference, st.PaymentMessage, st.Status, st.ErrorMessage, st.PaymentTime,
	)
	if err != nil {
		return fmt.Errorf("upsert order status: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, gateway_name = $2, updated_at = NOW() WHERE id = $3`,
		string(status), gateway, orderID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetStatus returns nil, nil when the order has no status record yet.
func (r *OrderRepository) GetStatus(ctx context.Context, orderID string) (*models.OrderStatus, error) {
	var (
		st          models.OrderStatus
		paymentTime sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, collect_id, order_amount, transaction_amount, payment_mode, payment_details,
			bank_reference, payment_message, status, error_message, payment_time, updated_at
		FROM order_status WHERE collect_id = $1`, orderID,
	).Scan(&st.ID, &st.CollectID, &st.OrderAmount, &st.TransactionAmount, &st.PaymentMode,
		&st.PaymentDetails, &st.BankReference, &st.PaymentMessage, &st.Status, &st.ErrorMessage,
		&paymentTime, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order status: %w", err)
	}
	if paymentTime.Valid {
		st.PaymentTime = &paymentTime.Time
	}
	return &st, nil
}
