package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"school-payment-service/models"

	"github.com/go-playground/validator/v10"
)

// Amounts are stored as NUMERIC(12,2), so magnitudes must stay below 1e10.
const maxAmount = 1e10

// maxUnixSeconds is 9999-12-31T23:59:59Z, the last instant RFC 3339 can name.
const maxUnixSeconds = 253402300799

// ErrMalformedPayload is returned when a payload cannot be turned into an
// OrderEvent: the native shape fails validation, or no order id is found.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// detectFunc inspects a decoded payload. matched=false hands the payload to
// the next detector in the chain.
type detectFunc func(body []byte, p map[string]interface{}) (ev models.OrderEvent, matched bool, err error)

// Normalizer turns provider payloads into OrderEvents. Detectors run in a
// fixed order: native, alternate, generic.
type Normalizer struct {
	now      func() time.Time
	validate *validator.Validate
	chain    []detectFunc
}

func NewNormalizer() *Normalizer {
	n := &Normalizer{
		now:      time.Now,
		validate: validator.New(),
	}
	n.chain = []detectFunc{n.detectNative, n.detectAlternate, n.detectGeneric}
	return n
}

// Normalize decodes body and runs the detector chain. Every error it returns
// wraps ErrMalformedPayload.
func (n *Normalizer) Normalize(body []byte) (models.OrderEvent, error) {
	p, err := decodeObject(body)
	if err != nil {
		return models.OrderEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	for _, detect := range n.chain {
		ev, matched, err := detect(body, p)
		if err != nil {
			return models.OrderEvent{}, err
		}
		if matched {
			return ev, nil
		}
	}
	return models.OrderEvent{}, fmt.Errorf("%w: no order identifier found", ErrMalformedPayload)
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var p map[string]interface{}
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %v", err)
	}
	if p == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return p, nil
}

// Native (Edviron) shape. The provider spells two keys inconsistently, so
// both spellings are accepted.
type nativePayload struct {
	OrderInfo *nativeOrderInfo `json:"order_info" validate:"required"`
}

type nativeOrderInfo struct {
	OrderID           string     `json:"order_id" validate:"required"`
	OrderAmount       *float64   `json:"order_amount" validate:"required"`
	TransactionAmount *float64   `json:"transaction_amount" validate:"required"`
	Gateway           string     `json:"gateway" validate:"required"`
	BankReference     string     `json:"bank_reference"`
	Status            string     `json:"status" validate:"required"`
	PaymentMode       string     `json:"payment_mode" validate:"required"`
	PaymentDetails    string     `json:"payemnt_details"`
	PaymentDetailsAlt string     `json:"payment_details"`
	PaymentMessage    string     `json:"Payment_message"`
	PaymentMessageAlt string     `json:"payment_message"`
	PaymentTime       *time.Time `json:"payment_time"`
	ErrorMessage      string     `json:"error_message"`
}

func (n *Normalizer) detectNative(body []byte, p map[string]interface{}) (models.OrderEvent, bool, error) {
	if _, ok := p["order_info"]; !ok {
		return models.OrderEvent{}, false, nil
	}

	var np nativePayload
	if err := json.Unmarshal(body, &np); err != nil {
		return models.OrderEvent{}, true, fmt.Errorf("%w: order_info: %v", ErrMalformedPayload, err)
	}
	if err := n.validate.Struct(np); err != nil {
		return models.OrderEvent{}, true, fmt.Errorf("%w: order_info: %v", ErrMalformedPayload, err)
	}
	info := np.OrderInfo
	if !validAmount(*info.OrderAmount) || !validAmount(*info.TransactionAmount) {
		return models.OrderEvent{}, true, fmt.Errorf("%w: order_info: amount out of range", ErrMalformedPayload)
	}
	id := collectID(info.OrderID)
	if id == "" {
		return models.OrderEvent{}, true, fmt.Errorf("%w: order_info.order_id has no collect id", ErrMalformedPayload)
	}
	ev := models.OrderEvent{
		Provider:          ProviderEdviron,
		ExternalOrderID:   id,
		OrderAmount:       *info.OrderAmount,
		TransactionAmount: *info.TransactionAmount,
		GatewayName:       info.Gateway,
		BankReference:     info.BankReference,
		RawStatus:         info.Status,
		PaymentMode:       info.PaymentMode,
		PaymentDetails:    firstNonEmpty(info.PaymentDetails, info.PaymentDetailsAlt),
		Message:           firstNonEmpty(info.PaymentMessage, info.PaymentMessageAlt),
		ErrorMessage:      info.ErrorMessage,
		PaymentTime:       n.now().UTC(),
	}
	if info.PaymentTime != nil {
		ev.PaymentTime = info.PaymentTime.UTC()
	}
	return ev, true, nil
}

// collectID strips the "/<transaction id>" suffix some native payloads carry.
func collectID(orderID string) string {
	if i := strings.Index(orderID, "/"); i >= 0 {
		return orderID[:i]
	}
	return orderID
}

var alternateMarkers = []string{"razorpay_payment_id", "razorpay_order_id", "payment_id", "order_id"}

// detectAlternate handles the Razorpay shapes: the flat checkout callback and
// the {"payload":{"payment":{"entity":{...}}}} event envelope, whose amounts
// are in paise.
func (n *Normalizer) detectAlternate(_ []byte, p map[string]interface{}) (models.OrderEvent, bool, error) {
	fields := p
	scale := 1.0
	if entity, ok := razorpayEntity(p); ok {
		fields = entity
		scale = 100
	} else if !hasAnyKey(p, alternateMarkers...) {
		return models.OrderEvent{}, false, nil
	}

	id := firstString(fields, "order_id", "razorpay_order_id")
	if id == "" {
		return models.OrderEvent{}, false, nil
	}

	amount, _ := firstNumber(fields, "amount", "order_amount")
	paid, ok := firstNumber(fields, "amount_paid", "transaction_amount")
	if !ok {
		paid = amount
	}

	ev := models.OrderEvent{
		Provider:          ProviderRazorpay,
		ExternalOrderID:   id,
		OrderAmount:       amount / scale,
		TransactionAmount: paid / scale,
		GatewayName:       firstNonEmpty(firstString(fields, "gateway", "gateway_name"), "Razorpay"),
		BankReference:     firstString(fields, "bank_reference", "rrn", "razorpay_payment_id", "payment_id"),
		RawStatus:         firstString(fields, "status", "payment_status"),
		PaymentMode:       firstString(fields, "method", "payment_mode"),
		PaymentDetails:    firstString(fields, "vpa", "bank", "wallet", "payment_details"),
		Message:           firstString(fields, "description", "payment_message"),
		ErrorMessage:      firstString(fields, "error_description", "error_message"),
		PaymentTime:       n.now().UTC(),
	}
	if ev.BankReference == "" {
		if acq, ok := fields["acquirer_data"].(map[string]interface{}); ok {
			ev.BankReference = firstString(acq, "rrn", "bank_transaction_id", "upi_transaction_id")
		}
	}
	if ev.BankReference == "" && scale != 1 {
		ev.BankReference = firstString(fields, "id")
	}
	if t, ok := firstTime(fields, "created_at", "payment_time"); ok {
		ev.PaymentTime = t
	}
	return ev, true, nil
}

func razorpayEntity(p map[string]interface{}) (map[string]interface{}, bool) {
	payload, ok := p["payload"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	payment, ok := payload["payment"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	entity, ok := payment["entity"].(map[string]interface{})
	return entity, ok
}

var (
	genericIDKeys        = []string{"order_id", "orderId", "custom_order_id", "collect_request_id", "collect_id", "merchant_order_id", "order", "id"}
	genericAmountKeys    = []string{"amount", "order_amount", "total", "total_amount", "value"}
	genericPaidKeys      = []string{"transaction_amount", "amount_paid", "paid_amount"}
	genericStatusKeys    = []string{"status", "payment_status", "state", "txn_status", "result"}
	genericReferenceKeys = []string{"bank_reference", "reference", "reference_id", "ref", "utr", "rrn", "transaction_id", "txn_id"}
	genericTimeKeys      = []string{"payment_time", "timestamp", "time", "created_at", "paid_at", "event_time"}
	genericModeKeys      = []string{"payment_mode", "method", "mode", "payment_method"}
	genericGatewayKeys   = []string{"gateway", "gateway_name", "provider"}
	genericMessageKeys   = []string{"message", "payment_message", "description"}
	genericErrorKeys     = []string{"error_message", "error_description", "error"}
)

// detectGeneric extracts what it can from common key names. Only the order id
// is mandatory; the raw payload is kept as the payment details.
func (n *Normalizer) detectGeneric(body []byte, p map[string]interface{}) (models.OrderEvent, bool, error) {
	id := firstString(p, genericIDKeys...)
	if id == "" {
		return models.OrderEvent{}, false, fmt.Errorf("%w: no order identifier found", ErrMalformedPayload)
	}

	amount, _ := firstNumber(p, genericAmountKeys...)
	paid, ok := firstNumber(p, genericPaidKeys...)
	if !ok {
		paid = amount
	}

	ev := models.OrderEvent{
		Provider:          ProviderGeneric,
		ExternalOrderID:   id,
		OrderAmount:       amount,
		TransactionAmount: paid,
		GatewayName:       firstString(p, genericGatewayKeys...),
		BankReference:     firstString(p, genericReferenceKeys...),
		RawStatus:         firstString(p, genericStatusKeys...),
		PaymentMode:       firstString(p, genericModeKeys...),
		PaymentDetails:    string(body),
		Message:           firstString(p, genericMessageKeys...),
		ErrorMessage:      firstString(p, genericErrorKeys...),
		PaymentTime:       n.now().UTC(),
	}
	if ev.GatewayName == "" {
		ev.GatewayName = "unknown"
	}
	if t, ok := firstTime(p, genericTimeKeys...); ok {
		ev.PaymentTime = t
	}
	return ev, true, nil
}

func hasAnyKey(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstString returns the first key holding a non-empty string or number.
func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstNumber returns the first key whose value coerces to a number.
func firstNumber(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// toFloat coerces v to an amount. Non-finite values and magnitudes the
// store cannot hold count as absent.
func toFloat(v interface{}) (float64, bool) {
	f, ok := rawFloat(v)
	if !ok || !validAmount(f) {
		return 0, false
	}
	return f, true
}

func validAmount(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Abs(f) < maxAmount
}

func rawFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// firstTime accepts unix seconds (number or numeric string) and RFC 3339.
// Seconds outside 1..maxUnixSeconds are treated as absent.
func firstTime(m map[string]interface{}, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
				return t.UTC(), true
			}
		}
		if secs, ok := rawFloat(v); ok && secs > 0 && secs <= maxUnixSeconds {
			return time.Unix(int64(secs), 0).UTC(), true
		}
	}
	return time.Time{}, false
}
