package usecase

import (
	"context"
	"errors"
	"time"

	"billing-service/internal/domain"
	"billing-service/internal/repository"
	"billing-service/pkg/signature"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DepositSettlement is the outcome of a verified deposit confirmation.
type DepositSettlement struct {
	WalletID   string          `json:"wallet_id"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Replayed   bool            `json:"replayed"`
}

// SettlementUsecase applies client-supplied payment confirmations to the
// ledger. Both settlement paths verify the gateway signature before any state
// is read, and all ledger writes for one settlement share one database
// transaction.
type SettlementUsecase struct {
	walletRepo repository.WalletRepository
	txRepo     repository.TransactionRepository
	subRepo    repository.SubscriptionRepository
	keySecret  string
	logger     *zap.Logger
}

func NewSettlementUsecase(
	walletRepo repository.WalletRepository,
	txRepo repository.TransactionRepository,
	subRepo repository.SubscriptionRepository,
	keySecret string,
	logger *zap.Logger,
) *SettlementUsecase {
	return &SettlementUsecase{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		subRepo:    subRepo,
		keySecret:  keySecret,
		logger:     logger,
	}
}

// SettleDeposit credits the wallet for a confirmed gateway payment. The
// transaction row is keyed by the gateway payment id, so a replayed
// confirmation hits the unique constraint and returns the current balance
// without a second credit.
func (uc *SettlementUsecase) SettleDeposit(ctx context.Context, principal domain.Principal, req *domain.SettleDepositRequest) (*DepositSettlement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !signature.Verify(uc.keySecret, signature.PaymentMessage(req.OrderID, req.PaymentID), req.Signature) {
		uc.logger.Warn("deposit settlement rejected: bad signature",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.String("user_id", principal.UserID))
		return nil, &domain.AuthenticationError{Subject: "payment"}
	}

	tx, err := uc.walletRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	wallet, err := uc.walletRepo.GetForUpdate(ctx, tx, req.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.UserID != principal.UserID {
		return nil, &domain.NotFoundError{Entity: "wallet", Ref: req.WalletID}
	}

	entry := &domain.Transaction{
		UserID:           principal.UserID,
		WalletID:         wallet.ID,
		Type:             domain.TxTypeDeposit,
		Amount:           req.Amount,
		Currency:         wallet.Currency,
		Status:           domain.TxStatusCompleted,
		ReferenceID:      req.PaymentID,
		GatewayOrderID:   &req.OrderID,
		GatewayPaymentID: &req.PaymentID,
	}

	if err := uc.txRepo.Create(ctx, tx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			_ = tx.Rollback(ctx)
			uc.logger.Info("deposit settlement replay, returning current balance",
				zap.String("payment_id", req.PaymentID),
				zap.String("wallet_id", wallet.ID))
			current, err := uc.walletRepo.GetByID(ctx, req.WalletID)
			if err != nil {
				return nil, err
			}
			return &DepositSettlement{
				WalletID:   current.ID,
				NewBalance: current.Balance,
				Replayed:   true,
			}, nil
		}
		return nil, err
	}

	newBalance := wallet.Balance.Add(req.Amount)
	if err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.logger.Info("deposit settled",
		zap.String("payment_id", req.PaymentID),
		zap.String("order_id", req.OrderID),
		zap.String("wallet_id", wallet.ID),
		zap.String("amount", req.Amount.String()),
		zap.String("new_balance", newBalance.String()))

	return &DepositSettlement{
		WalletID:   wallet.ID,
		NewBalance: newBalance,
		Replayed:   false,
	}, nil
}

// SettleSubscription activates or updates the user's single subscription row
// after a verified plan payment. The upsert is one conditional statement, so
// duplicate client retries cannot interleave.
func (uc *SettlementUsecase) SettleSubscription(ctx context.Context, principal domain.Principal, req *domain.SettleSubscriptionRequest) (*domain.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !signature.Verify(uc.keySecret, signature.PaymentMessage(req.OrderID, req.PaymentID), req.Signature) {
		uc.logger.Warn("subscription settlement rejected: bad signature",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.String("user_id", principal.UserID))
		return nil, &domain.AuthenticationError{Subject: "payment"}
	}

	now := time.Now().UTC()
	cycle := req.BillingCycle
	sub := &domain.Subscription{
		UserID:                principal.UserID,
		Plan:                  req.Plan,
		BillingCycle:          &cycle,
		GatewaySubscriptionID: &req.OrderID,
		GatewayPaymentID:      &req.PaymentID,
		PaymentStatus:         domain.SubPaymentCompleted,
		IsAutoRenew:           true,
		StartDate:             now,
		EndDate:               domain.CycleEnd(now, req.BillingCycle),
	}

	if err := uc.subRepo.Upsert(ctx, sub); err != nil {
		uc.logger.Error("failed to upsert subscription",
			zap.String("user_id", principal.UserID),
			zap.String("payment_id", req.PaymentID),
			zap.Error(err))
		return nil, err
	}

	uc.logger.Info("subscription settled",
		zap.String("user_id", principal.UserID),
		zap.String("plan", string(req.Plan)),
		zap.String("billing_cycle", string(req.BillingCycle)),
		zap.Time("end_date", sub.EndDate))

	return sub, nil
}
