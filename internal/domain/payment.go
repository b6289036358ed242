package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type WebhookEvent string

const (
	EventPaymentCaptured       WebhookEvent = "payment.captured"
	EventPaymentFailed         WebhookEvent = "payment.failed"
	EventSubscriptionActivated WebhookEvent = "subscription.activated"
	EventSubscriptionCharged   WebhookEvent = "subscription.charged"
	EventRefundCreated         WebhookEvent = "refund.created"
)

// PaymentLog is an append-only audit record of every gateway webhook event.
// The unique (event_type, gateway_event_id) pair is the durable dedupe key.
type PaymentLog struct {
	ID               int64           `json:"id" db:"id"`
	EventType        WebhookEvent    `json:"event_type" db:"event_type"`
	GatewayEventID   string          `json:"gateway_event_id" db:"gateway_event_id"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	Status           string          `json:"status" db:"status"`
	ErrorCode        *string         `json:"error_code,omitempty" db:"error_code"`
	ErrorDescription *string         `json:"error_description,omitempty" db:"error_description"`
	Payload          json.RawMessage `json:"payload" db:"payload"`
	ReceivedAt       time.Time       `json:"received_at" db:"received_at"`
}

// WebhookEnvelope is the gateway's webhook body shape. Entities are nested
// one level down under payload.<entity>.entity.
type WebhookEnvelope struct {
	Event   WebhookEvent `json:"event"`
	EventID string       `json:"event_id"`
	Payload struct {
		Payment struct {
			Entity WebhookPayment `json:"entity"`
		} `json:"payment"`
		Subscription struct {
			Entity WebhookSubscription `json:"entity"`
		} `json:"subscription"`
		Refund struct {
			Entity WebhookRefund `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type WebhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	AmountMinor      int64  `json:"amount"`
	Currency         string `json:"currency"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type WebhookSubscription struct {
	ID        string `json:"id"`
	PlanID    string `json:"plan_id"`
	Status    string `json:"status"`
	ChargeAt  int64  `json:"charge_at,omitempty"`
	PaidCount int    `json:"paid_count,omitempty"`
}

type WebhookRefund struct {
	ID          string `json:"id"`
	PaymentID   string `json:"payment_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// DepositOrderRequest asks the gateway for a one-off deposit order.
type DepositOrderRequest struct {
	WalletID string          `json:"wallet_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (r *DepositOrderRequest) Validate() error {
	if r.WalletID == "" {
		return NewValidationError("wallet_id is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount must be greater than 0")
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	return nil
}

// DepositOrder is the created gateway order surfaced back to the client.
type DepositOrder struct {
	OrderID          string          `json:"order_id"`
	Receipt          string          `json:"receipt"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	GatewayAmount    int64           `json:"gateway_amount"` // minor units
	GatewayCurrency  string          `json:"gateway_currency"`
}

// SettleDepositRequest is the client-supplied payment confirmation for a
// deposit order. Signature covers "orderID|paymentID".
type SettleDepositRequest struct {
	PaymentID string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	Signature string          `json:"signature"`
	WalletID  string          `json:"wallet_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r *SettleDepositRequest) Validate() error {
	if r.PaymentID == "" || r.OrderID == "" || r.Signature == "" {
		return NewValidationError("payment_id, order_id and signature are required")
	}
	if r.WalletID == "" {
		return NewValidationError("wallet_id is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount must be greater than 0")
	}
	return nil
}

// SettleSubscriptionRequest is the client-supplied confirmation for a plan
// purchase.
type SettleSubscriptionRequest struct {
	PaymentID    string       `json:"payment_id"`
	OrderID      string       `json:"order_id"`
	Signature    string       `json:"signature"`
	Plan         Plan         `json:"plan"`
	BillingCycle BillingCycle `json:"billing_cycle"`
}

func (r *SettleSubscriptionRequest) Validate() error {
	if r.PaymentID == "" || r.OrderID == "" || r.Signature == "" {
		return NewValidationError("payment_id, order_id and signature are required")
	}
	if !ValidPlan(r.Plan) {
		return NewValidationError("plan must be one of: basic, premium")
	}
	if !ValidCycle(r.BillingCycle) {
		return NewValidationError("billing_cycle must be one of: monthly, yearly")
	}
	return nil
}
