package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const ProviderEdviron = "edviron"

type EdvironConfig struct {
	BaseURL  string
	APIKey   string
	SchoolID string
}

// EdvironClient talks to the Edviron collect-request API.
type EdvironClient struct {
	baseURL  string
	apiKey   string
	schoolID string
	signer   Signer
	client   *http.Client
}

func NewEdvironClient(cfg EdvironConfig, signer Signer) *EdvironClient {
	return &EdvironClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		schoolID: cfg.SchoolID,
		signer:   signer,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *EdvironClient) Name() string { return ProviderEdviron }

type edvironCreateRequest struct {
	SchoolID    string `json:"school_id"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Sign        string `json:"sign"`
}

type edvironCreateResponse struct {
	CollectRequestID  string `json:"collect_request_id"`
	CollectRequestURL string `json:"Collect_request_url"`
}

type edvironStatusResponse struct {
	Status  string          `json:"status"`
	Amount  json.Number     `json:"amount"`
	Details json.RawMessage `json:"details"`
}

func (c *EdvironClient) CreateCollectRequest(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	amount := strconv.FormatFloat(req.Amount, 'f', -1, 64)
	sign, err := c.signer.Sign(map[string]interface{}{
		"school_id":    c.schoolID,
		"amount":       amount,
		"callback_url": req.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(edvironCreateRequest{
		SchoolID:    c.schoolID,
		Amount:      amount,
		CallbackURL: req.CallbackURL,
		Sign:        sign,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-collect-request", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out edvironCreateResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	if out.CollectRequestID == "" {
		return nil, &UpstreamError{Provider: ProviderEdviron, StatusCode: http.StatusOK, Body: []byte(`{"error":"response has no collect_request_id"}`)}
	}
	return &CollectResponse{CollectRequestID: out.CollectRequestID, PaymentURL: out.CollectRequestURL}, nil
}

func (c *EdvironClient) CollectRequestStatus(ctx context.Context, collectRequestID string) (*CollectStatus, error) {
	sign, err := c.signer.Sign(map[string]interface{}{
		"school_id":          c.schoolID,
		"collect_request_id": collectRequestID,
	})
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("school_id", c.schoolID)
	q.Set("sign", sign)
	endpoint := fmt.Sprintf("%s/collect-request/%s?%s", c.baseURL, url.PathEscape(collectRequestID), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out edvironStatusResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	amount, _ := out.Amount.Float64()
	return &CollectStatus{Status: out.Status, Amount: amount, Details: out.Details}, nil
}

// do sends req with the API key and decodes a 2xx body into out. Non-2xx
// responses become *UpstreamError with the body intact.
func (c *EdvironClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Provider: ProviderEdviron, StatusCode: http.StatusBadGateway, Body: mustJSON(map[string]string{"error": err.Error()})}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Provider: ProviderEdviron, StatusCode: resp.StatusCode, Body: mustJSON(map[string]string{"error": err.Error()})}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Provider: ProviderEdviron, StatusCode: resp.StatusCode, Body: body}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Provider: ProviderEdviron, StatusCode: resp.StatusCode, Body: body}
	}
	return nil
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
