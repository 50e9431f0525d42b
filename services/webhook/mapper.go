package webhook

import (
	"strings"

	"school-payment-service/models"
)

const (
	ProviderEdviron  = "edviron"
	ProviderRazorpay = "razorpay"
	ProviderGeneric  = "generic"
)

var statusTables = map[string]map[string]models.Status{
	ProviderEdviron: {
		"success":      models.StatusSuccess,
		"paid":         models.StatusSuccess,
		"failed":       models.StatusFailed,
		"failure":      models.StatusFailed,
		"cancelled":    models.StatusFailed,
		"user_dropped": models.StatusFailed,
		"expired":      models.StatusFailed,
		"void":         models.StatusFailed,
	},
	ProviderRazorpay: {
		"captured":  models.StatusSuccess,
		"paid":      models.StatusSuccess,
		"success":   models.StatusSuccess,
		"failed":    models.StatusFailed,
		"failure":   models.StatusFailed,
		"cancelled": models.StatusFailed,
		"expired":   models.StatusFailed,
	},
	ProviderGeneric: {
		"success":      models.StatusSuccess,
		"successful":   models.StatusSuccess,
		"succeeded":    models.StatusSuccess,
		"paid":         models.StatusSuccess,
		"captured":     models.StatusSuccess,
		"completed":    models.StatusSuccess,
		"failed":       models.StatusFailed,
		"failure":      models.StatusFailed,
		"cancelled":    models.StatusFailed,
		"canceled":     models.StatusFailed,
		"declined":     models.StatusFailed,
		"rejected":     models.StatusFailed,
		"user_dropped": models.StatusFailed,
		"expired":      models.StatusFailed,
		"void":         models.StatusFailed,
	},
}

// MapStatus maps a provider's raw status to the canonical status. Matching is
// case-insensitive. Unknown providers use the generic table; anything not in
// the table, including the empty string, is pending.
func MapStatus(provider, raw string) models.Status {
	table, ok := statusTables[provider]
	if !ok {
		table = statusTables[ProviderGeneric]
	}
	if s, ok := table[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return models.StatusPending
}
