package repository

import (
	"context"
	"errors"
	"fmt"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository interface {
	// Upsert writes the single subscription row per user as one conditional
	// statement, so concurrent settlements for the same user cannot interleave
	// a read-modify-write.
	Upsert(ctx context.Context, sub *domain.Subscription) error
	GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	SetPaymentStatus(ctx context.Context, gatewaySubscriptionID string, status domain.SubscriptionPaymentStatus) error
	ExtendPeriod(ctx context.Context, gatewaySubscriptionID string) error
}

type subscriptionRepo struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) Upsert(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			user_id, plan, billing_cycle, gateway_subscription_id,
			gateway_payment_id, payment_status, is_auto_renew,
			start_date, end_date, trial_end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			billing_cycle = EXCLUDED.billing_cycle,
			gateway_subscription_id = COALESCE(EXCLUDED.gateway_subscription_id, subscriptions.gateway_subscription_id),
			gateway_payment_id = COALESCE(EXCLUDED.gateway_payment_id, subscriptions.gateway_payment_id),
			payment_status = EXCLUDED.payment_status,
			is_auto_renew = EXCLUDED.is_auto_renew,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			trial_end_date = COALESCE(EXCLUDED.trial_end_date, subscriptions.trial_end_date),
			updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		sub.UserID,
		sub.Plan,
		sub.BillingCycle,
		sub.GatewaySubscriptionID,
		sub.GatewayPaymentID,
		sub.PaymentStatus,
		sub.IsAutoRenew,
		sub.StartDate,
		sub.EndDate,
		sub.TrialEndDate,
	).Scan(&sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `
		SELECT user_id, plan, billing_cycle, gateway_subscription_id,
		       gateway_payment_id, payment_status, is_auto_renew,
		       start_date, end_date, trial_end_date, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`

	var sub domain.Subscription
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.UserID,
		&sub.Plan,
		&sub.BillingCycle,
		&sub.GatewaySubscriptionID,
		&sub.GatewayPaymentID,
		&sub.PaymentStatus,
		&sub.IsAutoRenew,
		&sub.StartDate,
		&sub.EndDate,
		&sub.TrialEndDate,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "subscription", Ref: userID}
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepo) SetPaymentStatus(ctx context.Context, gatewaySubscriptionID string, status domain.SubscriptionPaymentStatus) error {
	query := `
		UPDATE subscriptions
		SET payment_status = $1, updated_at = NOW()
		WHERE gateway_subscription_id = $2
	`
	tag, err := r.db.Exec(ctx, query, status, gatewaySubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "subscription", Ref: gatewaySubscriptionID}
	}
	return nil
}

// ExtendPeriod moves end_date forward one billing cycle after a successful
// recurring charge.
func (r *subscriptionRepo) ExtendPeriod(ctx context.Context, gatewaySubscriptionID string) error {
	query := `
		UPDATE subscriptions
		SET end_date = CASE
				WHEN billing_cycle = 'yearly' THEN end_date + INTERVAL '1 year'
				ELSE end_date + INTERVAL '1 month'
			END,
			payment_status = 'active',
			updated_at = NOW()
		WHERE gateway_subscription_id = $1
	`
	tag, err := r.db.Exec(ctx, query, gatewaySubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to extend subscription period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "subscription", Ref: gatewaySubscriptionID}
	}
	return nil
}
