package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"school-payment-service/models"
	"school-payment-service/repository"
)

// ParsePagination reads page and limit. Missing values take the defaults;
// non-numeric or non-positive values are rejected. limit is capped.
func ParsePagination(r *http.Request) (page, limit int, err error) {
	q := r.URL.Query()
	page, err = positiveInt(q.Get("page"), repository.DefaultPage)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid page: %w", err)
	}
	limit, err = positiveInt(q.Get("limit"), repository.DefaultLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid limit: %w", err)
	}
	if limit > repository.MaxLimit {
		limit = repository.MaxLimit
	}
	return page, limit, nil
}

// ParseTransactionFilter reads the transaction view query: status,
// school_id, sort, order, page and limit.
func ParseTransactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	page, limit, err := ParsePagination(r)
	if err != nil {
		return models.TransactionFilter{}, err
	}

	f := models.TransactionFilter{
		Status:   strings.TrimSpace(q.Get("status")),
		SchoolID: strings.TrimSpace(q.Get("school_id")),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Order:    strings.ToLower(strings.TrimSpace(q.Get("order"))),
		Page:     page,
		Limit:    limit,
	}
	if f.Status != "" && !models.Status(f.Status).Valid() {
		return models.TransactionFilter{}, fmt.Errorf("invalid status %q: use pending, success or failed", f.Status)
	}
	if f.Sort != "" && !repository.IsSortable(f.Sort) {
		return models.TransactionFilter{}, fmt.Errorf("invalid sort field %q", f.Sort)
	}
	if f.Order != "" && f.Order != "asc" && f.Order != "desc" {
		return models.TransactionFilter{}, fmt.Errorf("invalid order %q: use asc or desc", f.Order)
	}
	return repository.NormalizeFilter(f), nil
}

func positiveInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return n, nil
}
