package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/provider"
	"billing-service/internal/repository"
	"billing-service/pkg/exchange"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Gateway receipt ids are capped at 40 characters; 8 user chars + ULID fits.
const receiptUserPrefixLen = 8

const (
	trialDays = 7

	// Effectively "until cancelled" for each cadence.
	monthlyCycleCount = 120
	yearlyCycleCount  = 10
)

// OrderUsecase creates gateway orders and subscriptions. It never touches the
// ledger; settlement happens only after a verified confirmation.
type OrderUsecase struct {
	gateway provider.PaymentGateway
	rates   exchange.Source
	subRepo repository.SubscriptionRepository
	cfg     *config.Config
	logger  *zap.Logger
}

func NewOrderUsecase(
	gateway provider.PaymentGateway,
	rates exchange.Source,
	subRepo repository.SubscriptionRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		gateway: gateway,
		rates:   rates,
		subRepo: subRepo,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreateDepositOrder quotes the requested amount in the gateway's settlement
// currency and creates a gateway order for it. The original amount/currency
// ride along in the order notes for webhook correlation.
func (uc *OrderUsecase) CreateDepositOrder(ctx context.Context, principal domain.Principal, req *domain.DepositOrderRequest) (*domain.DepositOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	settlement := uc.cfg.Gateway.SettlementCurrency
	converted, err := exchange.Convert(uc.rates, req.Amount, req.Currency, settlement)
	if err != nil {
		uc.logger.Error("currency conversion failed",
			zap.String("from", req.Currency),
			zap.String("to", settlement),
			zap.Error(err))
		return nil, domain.NewValidationError("unsupported currency: %s", req.Currency)
	}

	receipt := buildReceipt(principal.UserID)
	amountMinor := exchange.ToMinorUnits(converted)

	uc.logger.Info("creating deposit order",
		zap.String("user_id", principal.UserID),
		zap.String("wallet_id", req.WalletID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
		zap.Int64("gateway_amount", amountMinor),
		zap.String("gateway_currency", settlement),
		zap.String("receipt", receipt))

	order, err := uc.gateway.CreateOrder(ctx, &provider.OrderRequest{
		AmountMinor: amountMinor,
		Currency:    settlement,
		Receipt:     receipt,
		Notes: map[string]string{
			"intent":            "wallet_deposit",
			"user_id":           principal.UserID,
			"wallet_id":         req.WalletID,
			"original_amount":   req.Amount.String(),
			"original_currency": req.Currency,
		},
	})
	if err != nil {
		uc.logger.Error("gateway order creation failed",
			zap.String("user_id", principal.UserID),
			zap.String("receipt", receipt),
			zap.Error(err))
		return nil, err
	}

	return &domain.DepositOrder{
		OrderID:          order.OrderID,
		Receipt:          receipt,
		OriginalAmount:   req.Amount,
		OriginalCurrency: req.Currency,
		GatewayAmount:    order.AmountMinor,
		GatewayCurrency:  order.Currency,
	}, nil
}

// CreateSubscription resolves the gateway plan id from the configured table
// and creates a recurring subscription. A missing mapping fails before any
// gateway call.
func (uc *OrderUsecase) CreateSubscription(ctx context.Context, principal domain.Principal, req *domain.SubscriptionCheckoutRequest) (*provider.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	planID, err := uc.cfg.Gateway.PlanID(req.Plan, req.BillingCycle)
	if err != nil {
		uc.logger.Error("gateway plan id unresolved",
			zap.String("plan", string(req.Plan)),
			zap.String("billing_cycle", string(req.BillingCycle)),
			zap.Error(err))
		return nil, err
	}

	totalCount := monthlyCycleCount
	if req.BillingCycle == domain.CycleYearly {
		totalCount = yearlyCycleCount
	}

	uc.logger.Info("creating gateway subscription",
		zap.String("user_id", principal.UserID),
		zap.String("plan", string(req.Plan)),
		zap.String("billing_cycle", string(req.BillingCycle)),
		zap.String("gateway_plan_id", planID))

	sub, err := uc.gateway.CreateSubscription(ctx, &provider.SubscriptionRequest{
		PlanID:     planID,
		TotalCount: totalCount,
		Notes: map[string]string{
			"user_id":       principal.UserID,
			"plan":          string(req.Plan),
			"billing_cycle": string(req.BillingCycle),
		},
	})
	if err != nil {
		uc.logger.Error("gateway subscription creation failed",
			zap.String("user_id", principal.UserID),
			zap.String("gateway_plan_id", planID),
			zap.Error(err))
		return nil, err
	}

	return sub, nil
}

// StartTrial provisions the 7-day trial row. No gateway involvement.
func (uc *OrderUsecase) StartTrial(ctx context.Context, principal domain.Principal) (*domain.Subscription, error) {
	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, trialDays)

	sub := &domain.Subscription{
		UserID:        principal.UserID,
		Plan:          domain.PlanTrial,
		PaymentStatus: domain.SubPaymentCreated,
		IsAutoRenew:   false,
		StartDate:     now,
		EndDate:       trialEnd,
		TrialEndDate:  &trialEnd,
	}

	if err := uc.subRepo.Upsert(ctx, sub); err != nil {
		uc.logger.Error("failed to start trial",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		return nil, err
	}

	uc.logger.Info("trial started",
		zap.String("user_id", principal.UserID),
		zap.Time("trial_end", trialEnd))
	return sub, nil
}

func buildReceipt(userID string) string {
	prefix := userID
	if len(prefix) > receiptUserPrefixLen {
		prefix = prefix[:receiptUserPrefixLen]
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return fmt.Sprintf("dep_%s_%s", prefix, id.String())
}
