package services

import (
	"fmt"
	"io"
	"time"

	"school-payment-service/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Transactions"

var exportHeaders = []string{
	"Collect ID", "Custom Order ID", "School ID", "Student Name", "Student Email", "Gateway",
	"Order Amount", "Transaction Amount", "Status", "Payment Mode", "Bank Reference", "Payment Time", "Created At",
}

// WriteTransactionsXLSX writes rows as a single-sheet workbook.
func WriteTransactionsXLSX(w io.Writer, rows []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, t := range rows {
		record := []interface{}{
			t.CollectID,
			deref(t.CustomOrderID),
			t.SchoolID,
			t.StudentInfo.Name,
			t.StudentInfo.Email,
			t.Gateway,
			t.OrderAmount,
			nil,
			string(t.Status),
			deref(t.PaymentMode),
			deref(t.BankReference),
			"",
			t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.TransactionAmount != nil {
			record[7] = *t.TransactionAmount
		}
		if t.PaymentTime != nil {
			record[11] = t.PaymentTime.UTC().Format(time.RFC3339)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
