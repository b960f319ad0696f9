package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayClient talks to the external payment provider over HTTP. The core
// treats the provider as untrusted I/O: only a verified confirmation from
// Verify may be recorded in the credit ledger. All calls go through a circuit
// breaker so a dead provider fast-fails instead of piling up requests.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewGatewayClient(baseURL string, cb *CircuitBreaker) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         cb,
	}
}

// CB exposes the breaker state for the health endpoint.
func (c *GatewayClient) CB() *CircuitBreaker { return c.cb }

type gatewayInitiateRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	CustomerRef string          `json:"customer_ref"`
}

type gatewayInitiateResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
}

type gatewayVerifyResponse struct {
	Confirmed bool `json:"confirmed"`
}

// Initiate opens a payment session and returns the provider's order id.
func (c *GatewayClient) Initiate(ctx context.Context, amount decimal.Decimal, customerRef string) (string, error) {
	var result gatewayInitiateResponse
	err := c.cb.Execute(func() error {
		return c.post(ctx, "/v1/orders", gatewayInitiateRequest{Amount: amount, CustomerRef: customerRef}, &result)
	})
	if err != nil {
		return "", err
	}
	if result.GatewayOrderID == "" {
		return "", fmt.Errorf("gateway: empty order id in response")
	}
	return result.GatewayOrderID, nil
}

// Verify asks the provider whether paymentRef actually settled.
func (c *GatewayClient) Verify(ctx context.Context, paymentRef string) (bool, error) {
	var result gatewayVerifyResponse
	err := c.cb.Execute(func() error {
		return c.get(ctx, "/v1/payments/"+paymentRef+"/status", &result)
	})
	if err != nil {
		return false, err
	}
	return result.Confirmed, nil
}

func (c *GatewayClient) post(ctx context.Context, path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gateway: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *GatewayClient) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("gateway: create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *GatewayClient) do(req *http.Request, dest interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway: returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}
