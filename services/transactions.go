package services

import (
	"bytes"
	"context"
	"io"

	"school-payment-service/errors"
	"school-payment-service/models"
	"school-payment-service/repository"
)

// TransactionStatus is an order with its latest payment detail, if any.
type TransactionStatus struct {
	Order          *models.Order       `json:"order"`
	PaymentDetails *models.OrderStatus `json:"payment_details"`
}

type TransactionService struct {
	view   TransactionStore
	orders OrderStore
}

func NewTransactionService(view TransactionStore, orders OrderStore) *TransactionService {
	return &TransactionService{view: view, orders: orders}
}

// List returns one page of the transaction view. total counts every row
// matching the filter.
func (s *TransactionService) List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error) {
	f = repository.NormalizeFilter(f)
	rows, total, err := s.view.List(ctx, f)
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to fetch transactions", err)
	}
	return &models.TransactionPage{
		Data: rows,
		Pagination: models.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: totalPages(total, f.Limit),
		},
	}, nil
}

func (s *TransactionService) Status(ctx context.Context, customOrderID string) (*TransactionStatus, error) {
	order, err := s.orders.FindByCustomOrderID(ctx, customOrderID)
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to fetch transaction", err)
	}
	if order == nil {
		return nil, errors.NewNotFoundError("transaction not found")
	}
	st, err := s.orders.GetStatus(ctx, order.ID)
	if err != nil {
		return nil, errors.E(errors.Internal, "failed to fetch payment details", err)
	}
	return &TransactionStatus{Order: order, PaymentDetails: st}, nil
}

// Receipt renders the PDF receipt for one order into w.
func (s *TransactionService) Receipt(ctx context.Context, customOrderID string, w io.Writer) error {
	ts, err := s.Status(ctx, customOrderID)
	if err != nil {
		return err
	}
	if err := WriteReceipt(w, ts.Order, ts.PaymentDetails); err != nil {
		return errors.E(errors.Internal, "failed to render receipt", err)
	}
	return nil
}

// Export writes every row matching f, ignoring its paging, as an xlsx
// workbook. The workbook is buffered so a failure leaves w untouched.
func (s *TransactionService) Export(ctx context.Context, f models.TransactionFilter, w io.Writer) error {
	f.Page = 1
	f.Limit = repository.MaxLimit
	f = repository.NormalizeFilter(f)

	var all []models.Transaction
	for {
		rows, total, err := s.view.List(ctx, f)
		if err != nil {
			return errors.E(errors.Internal, "failed to fetch transactions", err)
		}
		all = append(all, rows...)
		if len(rows) < f.Limit || len(all) >= total {
			break
		}
		f.Page++
	}

	var buf bytes.Buffer
	if err := WriteTransactionsXLSX(&buf, all); err != nil {
		return errors.E(errors.Internal, "failed to build export", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
