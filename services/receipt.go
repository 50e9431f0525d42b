package services

import (
	"fmt"
	"io"
	"time"

	"school-payment-service/models"

	"github.com/jung-kurt/gofpdf"
)

// WriteReceipt renders a one-page PDF receipt for order. st may be nil for an
// order that has not been paid yet.
func WriteReceipt(w io.Writer, order *models.Order, st *models.OrderStatus) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Payment Receipt")
	pdf.Ln(14)

	customID := ""
	if order.CustomOrderID != nil {
		customID = *order.CustomOrderID
	}

	rows := [][2]string{
		{"Order ID", customID},
		{"School ID", order.SchoolID},
		{"Student", order.StudentInfo.Name},
		{"Student ID", order.StudentInfo.ID},
		{"Email", order.StudentInfo.Email},
		{"Gateway", order.GatewayName},
		{"Order Amount", fmt.Sprintf("INR %.2f", order.Amount)},
		{"Status", string(order.Status)},
	}
	if st != nil {
		rows = append(rows,
			[2]string{"Transaction Amount", fmt.Sprintf("INR %.2f", st.TransactionAmount)},
			[2]string{"Payment Mode", st.PaymentMode},
			[2]string{"Bank Reference", st.BankReference},
		)
		if st.PaymentTime != nil {
			rows = append(rows, [2]string{"Paid At", st.PaymentTime.UTC().Format(time.RFC1123)})
		}
	}

	for _, r := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, r[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(120, 8, r[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(40, 8, "Generated "+time.Now().UTC().Format(time.RFC1123))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error generating receipt PDF: %w", err)
	}
	return nil
}
