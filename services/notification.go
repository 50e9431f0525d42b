package services

import (
	"bytes"
	"context"
	"fmt"

	"school-payment-service/logger"
	"school-payment-service/models"
	"school-payment-service/services/kafka"
)

// Mailer is implemented by SMTPMailer.
type Mailer interface {
	Send(to, subject, htmlBody string, attachments ...Attachment) error
}

// ReceiptNotifier emails a PDF receipt to the student once an order is paid.
type ReceiptNotifier struct {
	mailer Mailer
	orders OrderStore
	log    *logger.Logger
}

func NewReceiptNotifier(mailer Mailer, orders OrderStore) *ReceiptNotifier {
	return &ReceiptNotifier{mailer: mailer, orders: orders, log: logger.With("component", "notifier")}
}

// SendReceipt is a no-op for orders without a student email.
func (n *ReceiptNotifier) SendReceipt(ctx context.Context, customOrderID string) error {
	order, err := n.orders.FindByCustomOrderID(ctx, customOrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s not found", customOrderID)
	}
	if order.StudentInfo.Email == "" {
		return nil
	}
	st, err := n.orders.GetStatus(ctx, order.ID)
	if err != nil {
		return err
	}

	var pdf bytes.Buffer
	if err := WriteReceipt(&pdf, order, st); err != nil {
		return err
	}

	subject := fmt.Sprintf("Payment received for order %s", customOrderID)
	return n.mailer.Send(order.StudentInfo.Email, subject, receiptBody(order), Attachment{
		Name:    fmt.Sprintf("receipt_%s.pdf", customOrderID),
		Content: pdf.Bytes(),
	})
}

// Notify is the ReconciliationService.OnSuccess hook.
func (n *ReceiptNotifier) Notify(ctx context.Context, customOrderID string) {
	if err := n.SendReceipt(ctx, customOrderID); err != nil {
		n.log.Error("receipt for %s: %v", customOrderID, err)
	}
}

// HandleReconciled is the kafka handler for payment.reconciled events.
func (n *ReceiptNotifier) HandleReconciled(ctx context.Context, evt kafka.PaymentEvent) error {
	if evt.Status != string(models.StatusSuccess) {
		return nil
	}
	return n.SendReceipt(ctx, evt.CustomOrderID)
}

func receiptBody(order *models.Order) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <p>Dear %s,</p>
    <p>We have received your payment of <strong>INR %.2f</strong>. Your receipt is attached.</p>
    <p>Regards,<br>School Accounts</p>
</body>
</html>`, order.StudentInfo.Name, order.Amount)
}
