package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"go.uber.org/zap"
)

// Client talks to the Razorpay REST API with basic auth. All calls run under
// the configured bounded timeout.
type Client struct {
	cfg        config.GatewayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *Client) GetName() string {
	return "razorpay"
}

type orderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResult struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, req *provider.OrderRequest) (*provider.OrderResponse, error) {
	payload := orderPayload{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}

	var result orderResult
	if err := c.post(ctx, "/v1/orders", payload, &result); err != nil {
		return nil, err
	}

	c.logger.Info("gateway order created",
		zap.String("order_id", result.ID),
		zap.Int64("amount", result.Amount),
		zap.String("currency", result.Currency),
		zap.String("receipt", req.Receipt))

	return &provider.OrderResponse{
		OrderID:     result.ID,
		AmountMinor: result.Amount,
		Currency:    result.Currency,
		Status:      result.Status,
	}, nil
}

type subscriptionPayload struct {
	PlanID         string            `json:"plan_id"`
	TotalCount     int               `json:"total_count"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type subscriptionResult struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	ShortURL string `json:"short_url"`
}

func (c *Client) CreateSubscription(ctx context.Context, req *provider.SubscriptionRequest) (*provider.SubscriptionResponse, error) {
	payload := subscriptionPayload{
		PlanID:         req.PlanID,
		TotalCount:     req.TotalCount,
		CustomerNotify: 1,
		Notes:          req.Notes,
	}

	var result subscriptionResult
	if err := c.post(ctx, "/v1/subscriptions", payload, &result); err != nil {
		return nil, err
	}

	c.logger.Info("gateway subscription created",
		zap.String("subscription_id", result.ID),
		zap.String("plan_id", req.PlanID),
		zap.String("status", result.Status))

	return &provider.SubscriptionResponse{
		SubscriptionID: result.ID,
		ShortURL:       result.ShortURL,
		Status:         result.Status,
	}, nil
}

type errorResult struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeout or transport failure: outcome unknown. Surface as such so
		// the caller does not retry blindly and double-charge.
		return fmt.Errorf("gateway call failed (outcome unknown, reconcile via webhook): %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr errorResult
		_ = json.Unmarshal(respBody, &gwErr)
		c.logger.Error("gateway returned non-2xx status",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("description", gwErr.Error.Description))
		return &domain.GatewayError{
			StatusCode:  resp.StatusCode,
			Description: gwErr.Error.Description,
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
