package domain

import (
	"time"
)

type Plan string
type BillingCycle string
type SubscriptionPaymentStatus string

const (
	PlanTrial   Plan = "trial"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

const (
	SubPaymentCreated   SubscriptionPaymentStatus = "created"
	SubPaymentCompleted SubscriptionPaymentStatus = "completed"
	SubPaymentActive    SubscriptionPaymentStatus = "active"
	SubPaymentHalted    SubscriptionPaymentStatus = "halted"
	SubPaymentCancelled SubscriptionPaymentStatus = "cancelled"
)

// Subscription is the single billing row per user (upsert semantics).
// EndDate governs access regardless of cancellation; cancelling never
// truncates the period already paid for.
type Subscription struct {
	UserID                string                    `json:"user_id" db:"user_id"`
	Plan                  Plan                      `json:"plan" db:"plan"`
	BillingCycle          *BillingCycle             `json:"billing_cycle,omitempty" db:"billing_cycle"`
	GatewaySubscriptionID *string                   `json:"gateway_subscription_id,omitempty" db:"gateway_subscription_id"`
	GatewayPaymentID      *string                   `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	PaymentStatus         SubscriptionPaymentStatus `json:"payment_status" db:"payment_status"`
	IsAutoRenew           bool                      `json:"is_auto_renew" db:"is_auto_renew"`
	StartDate             time.Time                 `json:"start_date" db:"start_date"`
	EndDate               time.Time                 `json:"end_date" db:"end_date"`
	TrialEndDate          *time.Time                `json:"trial_end_date,omitempty" db:"trial_end_date"`
	UpdatedAt             time.Time                 `json:"updated_at" db:"updated_at"`
}

func ValidPlan(p Plan) bool {
	return p == PlanBasic || p == PlanPremium
}

func ValidCycle(c BillingCycle) bool {
	return c == CycleMonthly || c == CycleYearly
}

// CycleEnd returns the end of one billing period starting at from.
func CycleEnd(from time.Time, cycle BillingCycle) time.Time {
	if cycle == CycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// SubscriptionCheckoutRequest starts a recurring plan purchase.
type SubscriptionCheckoutRequest struct {
	Plan         Plan         `json:"plan"`
	BillingCycle BillingCycle `json:"billing_cycle"`
}

func (r *SubscriptionCheckoutRequest) Validate() error {
	if !ValidPlan(r.Plan) {
		return NewValidationError("plan must be one of: basic, premium")
	}
	if !ValidCycle(r.BillingCycle) {
		return NewValidationError("billing_cycle must be one of: monthly, yearly")
	}
	return nil
}
