package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"school-payment-service/errors"
	"school-payment-service/http/response"
	"school-payment-service/utils"

	"github.com/go-chi/chi/v5"
)

// GetTransactions returns one page of the transaction view.
// GET /api/transactions?status=&school_id=&sort=&order=&page=&limit=
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := utils.ParseTransactionFilter(r)
	if err != nil {
		response.Error(w, errors.E(errors.Invalid, err.Error(), err))
		return
	}

	page, err := h.Transactions.List(r.Context(), f)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Paginated(w, page.Data, page.Pagination)
}

// GetTransactionsBySchool is GetTransactions with the school taken from the path.
// GET /api/transactions/school/{schoolId}
func (h *Handler) GetTransactionsBySchool(w http.ResponseWriter, r *http.Request) {
	f, err := utils.ParseTransactionFilter(r)
	if err != nil {
		response.Error(w, errors.E(errors.Invalid, err.Error(), err))
		return
	}
	f.SchoolID = chi.URLParam(r, "schoolId")

	page, err := h.Transactions.List(r.Context(), f)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Paginated(w, page.Data, page.Pagination)
}

// GetTransactionStatus returns an order and its payment details.
// GET /api/transaction-status/{customOrderId}
func (h *Handler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Transactions.Status(r.Context(), chi.URLParam(r, "customOrderId"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.SuccessResponse(w, http.StatusOK, "Transaction status retrieved", ts)
}

// DownloadReceipt streams the PDF receipt for an order.
// GET /api/transaction-status/{customOrderId}/receipt
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "customOrderId")

	var buf bytes.Buffer
	if err := h.Transactions.Receipt(r.Context(), id, &buf); err != nil {
		response.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt_%s.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// ExportTransactions downloads every matching transaction as xlsx.
// GET /api/transactions/export?status=&school_id=&sort=&order=
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := utils.ParseTransactionFilter(r)
	if err != nil {
		response.Error(w, errors.E(errors.Invalid, err.Error(), err))
		return
	}

	var buf bytes.Buffer
	if err := h.Transactions.Export(r.Context(), f, &buf); err != nil {
		response.Error(w, err)
		return
	}

	name := fmt.Sprintf("transactions_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
