package provider

import (
	"context"
)

// PaymentGateway is the outbound payment provider interface. A timed-out call
// is unknown-outcome: callers must not assume failure, the webhook audit path
// reconciles it later.
type PaymentGateway interface {
	// GetName returns the provider name
	GetName() string

	// CreateOrder creates a one-off payment order (deposit)
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// CreateSubscription creates a recurring subscription for a gateway plan
	CreateSubscription(ctx context.Context, req *SubscriptionRequest) (*SubscriptionResponse, error)
}

type OrderRequest struct {
	AmountMinor int64             // gateway minor units
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type OrderResponse struct {
	OrderID     string
	AmountMinor int64
	Currency    string
	Status      string
}

type SubscriptionRequest struct {
	PlanID     string
	TotalCount int
	Notes      map[string]string
}

type SubscriptionResponse struct {
	SubscriptionID string
	ShortURL       string
	Status         string
}
