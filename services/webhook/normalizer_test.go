package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 4, 23, 8, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	n := NewNormalizer()
	n.now = func() time.Time { return fixedNow }
	return n
}

func TestNormalizeNative(t *testing.T) {
	n := newTestNormalizer()

	ev, err := n.Normalize([]byte(`{
		"status": 200,
		"order_info": {
			"order_id": "ORD123",
			"order_amount": 1000,
			"transaction_amount": 1000,
			"gateway": "X",
			"bank_reference": "YESBNK222",
			"status": "SUCCESS",
			"payment_mode": "upi",
			"payemnt_details": "success@ybl",
			"Payment_message": "payment success",
			"payment_time": "2025-04-23T08:14:21.945+00:00",
			"error_message": "NA"
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, ProviderEdviron, ev.Provider)
	assert.Equal(t, "ORD123", ev.ExternalOrderID)
	assert.Equal(t, 1000.0, ev.OrderAmount)
	assert.Equal(t, 1000.0, ev.TransactionAmount)
	assert.Equal(t, "X", ev.GatewayName)
	assert.Equal(t, "YESBNK222", ev.BankReference)
	assert.Equal(t, "SUCCESS", ev.RawStatus)
	assert.Equal(t, "upi", ev.PaymentMode)
	assert.Equal(t, "success@ybl", ev.PaymentDetails)
	assert.Equal(t, "payment success", ev.Message)
	assert.Equal(t, "NA", ev.ErrorMessage)
	assert.Equal(t, time.Date(2025, 4, 23, 8, 14, 21, 945000000, time.UTC), ev.PaymentTime)
}

func TestNormalizeNativeAcceptsCorrectedSpellingsAndSplitsCollectID(t *testing.T) {
	n := newTestNormalizer()

	ev, err := n.Normalize([]byte(`{"order_info": {
		"order_id": "6808bc4888e4e3c149e757f1/transaction_1", "order_amount": 2000, "transaction_amount": 2200,
		"gateway": "NA", "status": "failed", "payment_mode": "card",
		"payment_details": "4111xxxx", "payment_message": "declined by bank"
	}}`))
	require.NoError(t, err)

	assert.Equal(t, "6808bc4888e4e3c149e757f1", ev.ExternalOrderID)
	assert.Equal(t, "4111xxxx", ev.PaymentDetails)
	assert.Equal(t, "declined by bank", ev.Message)
	assert.Equal(t, fixedNow, ev.PaymentTime)
}

func TestNormalizeNativeRejectsInvalidShapes(t *testing.T) {
	n := newTestNormalizer()

	cases := map[string]string{
		"missing status":     `{"order_info": {"order_id": "A", "order_amount": 1, "transaction_amount": 1, "gateway": "X", "payment_mode": "upi"}}`,
		"missing amount":     `{"order_info": {"order_id": "A", "transaction_amount": 1, "gateway": "X", "status": "SUCCESS", "payment_mode": "upi"}}`,
		"amount as string":   `{"order_info": {"order_id": "A", "order_amount": "1", "transaction_amount": 1, "gateway": "X", "status": "SUCCESS", "payment_mode": "upi"}}`,
		"order_info not obj": `{"order_info": "ORD123"}`,
		"order_info null":    `{"order_info": null}`,
		"bad payment_time":   `{"order_info": {"order_id": "A", "order_amount": 1, "transaction_amount": 1, "gateway": "X", "status": "SUCCESS", "payment_mode": "upi", "payment_time": "yesterday"}}`,
		"empty collect id":   `{"order_info": {"order_id": "/txn", "order_amount": 1, "transaction_amount": 1, "gateway": "X", "status": "SUCCESS", "payment_mode": "upi"}}`,
		"amount too large":   `{"order_info": {"order_id": "A", "order_amount": 1e300, "transaction_amount": 1, "gateway": "X", "status": "SUCCESS", "payment_mode": "upi"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize([]byte(body))
			require.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestNormalizeRazorpayFlat(t *testing.T) {
	n := newTestNormalizer()

	ev, err := n.Normalize([]byte(`{
		"razorpay_order_id": "order_Nx1",
		"razorpay_payment_id": "pay_Q9",
		"amount": "499.50",
		"payment_status": "captured",
		"method": "upi",
		"created_at": 1745395200
	}`))
	require.NoError(t, err)

	assert.Equal(t, ProviderRazorpay, ev.Provider)
	assert.Equal(t, "order_Nx1", ev.ExternalOrderID)
	assert.Equal(t, 499.5, ev.OrderAmount)
	assert.Equal(t, 499.5, ev.TransactionAmount)
	assert.Equal(t, "pay_Q9", ev.BankReference)
	assert.Equal(t, "captured", ev.RawStatus)
	assert.Equal(t, "upi", ev.PaymentMode)
	assert.Equal(t, "Razorpay", ev.GatewayName)
	assert.Equal(t, time.Unix(1745395200, 0).UTC(), ev.PaymentTime)
}

func TestNormalizeRazorpayEnvelopeConvertsPaise(t *testing.T) {
	n := newTestNormalizer()

	ev, err := n.Normalize([]byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {
			"id": "pay_123", "order_id": "order_ABC", "amount": 50000, "status": "failed",
			"method": "card", "error_description": "Payment was declined", "created_at": 1745395200
		}}}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "order_ABC", ev.ExternalOrderID)
	assert.Equal(t, 500.0, ev.OrderAmount)
	assert.Equal(t, "pay_123", ev.BankReference)
	assert.Equal(t, "Payment was declined", ev.ErrorMessage)
	assert.Equal(t, "failed", ev.RawStatus)
}

func TestNormalizeAlternateWithoutIDFallsThroughToGeneric(t *testing.T) {
	n := newTestNormalizer()

	// payment_id marks the alternate shape, but only custom_order_id carries the order
	ev, err := n.Normalize([]byte(`{"payment_id": "pay_1", "custom_order_id": "C-77", "status": "completed"}`))
	require.NoError(t, err)

	assert.Equal(t, ProviderGeneric, ev.Provider)
	assert.Equal(t, "C-77", ev.ExternalOrderID)
}

func TestNormalizeGenericDefaults(t *testing.T) {
	n := newTestNormalizer()
	body := `{"orderId": 42, "total": "not-a-number", "state": "PAID"}`

	ev, err := n.Normalize([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, ProviderGeneric, ev.Provider)
	assert.Equal(t, "42", ev.ExternalOrderID)
	assert.Equal(t, 0.0, ev.OrderAmount)
	assert.Equal(t, 0.0, ev.TransactionAmount)
	assert.Equal(t, "unknown", ev.GatewayName)
	assert.Equal(t, "", ev.BankReference)
	assert.Equal(t, "PAID", ev.RawStatus)
	assert.Equal(t, fixedNow, ev.PaymentTime)
	assert.Equal(t, body, ev.PaymentDetails)
}

func TestNormalizeGenericSynonyms(t *testing.T) {
	n := newTestNormalizer()

	ev, err := n.Normalize([]byte(`{"collect_request_id": "CR1", "total_amount": 120.25, "utr": "UTR9",
		"timestamp": "2025-01-02T03:04:05Z", "provider": "Cashfree", "payment_method": "netbanking"}`))
	require.NoError(t, err)

	assert.Equal(t, "CR1", ev.ExternalOrderID)
	assert.Equal(t, 120.25, ev.OrderAmount)
	assert.Equal(t, "UTR9", ev.BankReference)
	assert.Equal(t, "Cashfree", ev.GatewayName)
	assert.Equal(t, "netbanking", ev.PaymentMode)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), ev.PaymentTime)
}

func TestNormalizeRejectsPayloadsWithoutOrderID(t *testing.T) {
	n := newTestNormalizer()

	for _, body := range []string{
		`{"status": "SUCCESS", "amount": 10}`,
		`{}`,
		`[1, 2, 3]`,
		`"just a string"`,
		`not json`,
		`null`,
	} {
		_, err := n.Normalize([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, body)
	}
}

func TestNormalizeTreatsUnstorableNumbersAsAbsent(t *testing.T) {
	n := newTestNormalizer()

	cases := map[string]struct {
		body   string
		amount float64
	}{
		"NaN string":          {`{"order_id": "ORD1", "amount": "NaN"}`, 0},
		"Infinity string":     {`{"custom_order_id": "ORD1", "amount": "Infinity", "transaction_amount": "-Inf"}`, 0},
		"beyond column range": {`{"custom_order_id": "ORD1", "amount": 1e11}`, 0},
		"next synonym wins":   {`{"custom_order_id": "ORD1", "amount": "NaN", "total": 50}`, 50},
		"huge timestamp":      {`{"custom_order_id": "ORD1", "amount": 10, "timestamp": 1e300}`, 10},
		"NaN timestamp":       {`{"order_id": "ORD1", "amount": 10, "created_at": "NaN"}`, 10},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ev, err := n.Normalize([]byte(tc.body))
			require.NoError(t, err)

			assert.Equal(t, "ORD1", ev.ExternalOrderID)
			assert.Equal(t, tc.amount, ev.OrderAmount)
			assert.Equal(t, tc.amount, ev.TransactionAmount)
			assert.Equal(t, fixedNow, ev.PaymentTime)

			_, err = json.Marshal(ev)
			assert.NoError(t, err)
		})
	}
}
