package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/razorpay/razorpay-go"
)

const ProviderRazorpay = "razorpay"

// razorpayOrders is the part of the razorpay-go Order resource in use.
type razorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayClient creates and polls Razorpay orders. Amounts are sent and
// received in paise.
type RazorpayClient struct {
	orders razorpayOrders
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayClient{orders: client.Order}
}

func (c *RazorpayClient) Name() string { return ProviderRazorpay }

// CreateCollectRequest creates an order. Razorpay has no hosted link for a
// bare order, so PaymentURL is left empty and checkout uses the order id.
func (c *RazorpayClient) CreateCollectRequest(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"amount":   int64(math.Round(req.Amount * 100)),
		"currency": "INR",
		"receipt":  req.Receipt,
	}
	resp, err := c.orders.Create(data, nil)
	if err != nil {
		return nil, razorpayError(err)
	}
	id, _ := resp["id"].(string)
	if id == "" {
		body, _ := json.Marshal(resp)
		return nil, &UpstreamError{Provider: ProviderRazorpay, StatusCode: http.StatusOK, Body: body}
	}
	return &CollectResponse{CollectRequestID: id}, nil
}

func (c *RazorpayClient) CollectRequestStatus(ctx context.Context, orderID string) (*CollectStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return nil, razorpayError(err)
	}
	details, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal razorpay order: %w", err)
	}
	status, _ := resp["status"].(string)
	var paise float64
	switch v := resp["amount_paid"].(type) {
	case float64:
		paise = v
	case int:
		paise = float64(v)
	}
	return &CollectStatus{Status: status, Amount: paise / 100, Details: details}, nil
}

func razorpayError(err error) error {
	return &UpstreamError{
		Provider:   ProviderRazorpay,
		StatusCode: http.StatusBadGateway,
		Body:       mustJSON(map[string]string{"error": err.Error()}),
	}
}
