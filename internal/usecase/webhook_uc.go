package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"billing-service/internal/domain"
	"billing-service/internal/repository"
	"billing-service/pkg/cache"
	"billing-service/pkg/signature"

	"go.uber.org/zap"
)

// IngestResult reports what the webhook ingestor did with an event.
type IngestResult struct {
	Event     domain.WebhookEvent `json:"event"`
	Duplicate bool                `json:"duplicate"`
	Handled   bool                `json:"handled"`
}

// WebhookUsecase applies asynchronous gateway events. Signature failure is the
// only fatal outcome; everything else returns success so the gateway does not
// retry-storm. Dedupe is a redis fast path in front of the payment_logs
// unique constraint, which stays authoritative.
type WebhookUsecase struct {
	logRepo       repository.PaymentLogRepository
	subRepo       repository.SubscriptionRepository
	walletRepo    repository.WalletRepository
	txRepo        repository.TransactionRepository
	deduper       *cache.Deduper // optional
	webhookSecret string
	logger        *zap.Logger
}

func NewWebhookUsecase(
	logRepo repository.PaymentLogRepository,
	subRepo repository.SubscriptionRepository,
	walletRepo repository.WalletRepository,
	txRepo repository.TransactionRepository,
	deduper *cache.Deduper,
	webhookSecret string,
	logger *zap.Logger,
) *WebhookUsecase {
	return &WebhookUsecase{
		logRepo:       logRepo,
		subRepo:       subRepo,
		walletRepo:    walletRepo,
		txRepo:        txRepo,
		deduper:       deduper,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Ingest verifies the webhook signature over the raw body and applies the
// event's side effects exactly once.
func (uc *WebhookUsecase) Ingest(ctx context.Context, body []byte, providedSignature string) (*IngestResult, error) {
	if !signature.Verify(uc.webhookSecret, body, providedSignature) {
		uc.logger.Warn("webhook rejected: bad signature",
			zap.Int("body_size", len(body)))
		return nil, &domain.AuthenticationError{Subject: "webhook"}
	}

	var env domain.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.NewValidationError("invalid webhook body: %v", err)
	}
	if env.Event == "" {
		return nil, domain.NewValidationError("webhook event type is missing")
	}

	dedupeKey := uc.dedupeKey(&env)
	if dedupeKey == "" {
		return nil, domain.NewValidationError("webhook carries no event or payment id")
	}

	if uc.deduper != nil {
		first, err := uc.deduper.FirstSeen(ctx, string(env.Event)+":"+dedupeKey)
		if err != nil {
			// Redis down: fall through to the unique constraint.
			uc.logger.Warn("webhook dedupe cache unavailable", zap.Error(err))
		} else if !first {
			uc.logger.Info("duplicate webhook short-circuited by cache",
				zap.String("event", string(env.Event)),
				zap.String("dedupe_key", dedupeKey))
			return &IngestResult{Event: env.Event, Duplicate: true, Handled: true}, nil
		}
	}

	log := uc.buildLog(&env, dedupeKey, body)
	if err := uc.logRepo.Insert(ctx, log); err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			uc.logger.Info("duplicate webhook event ignored",
				zap.String("event", string(env.Event)),
				zap.String("dedupe_key", dedupeKey))
			return &IngestResult{Event: env.Event, Duplicate: true, Handled: true}, nil
		}
		return nil, err
	}

	handled := uc.applySideEffects(ctx, &env)

	return &IngestResult{Event: env.Event, Duplicate: false, Handled: handled}, nil
}

func (uc *WebhookUsecase) dedupeKey(env *domain.WebhookEnvelope) string {
	if env.EventID != "" {
		return env.EventID
	}
	if env.Payload.Payment.Entity.ID != "" {
		return env.Payload.Payment.Entity.ID
	}
	if env.Payload.Subscription.Entity.ID != "" {
		return env.Payload.Subscription.Entity.ID
	}
	if env.Payload.Refund.Entity.ID != "" {
		return env.Payload.Refund.Entity.ID
	}
	return ""
}

func (uc *WebhookUsecase) buildLog(env *domain.WebhookEnvelope, dedupeKey string, body []byte) *domain.PaymentLog {
	log := &domain.PaymentLog{
		EventType:      env.Event,
		GatewayEventID: dedupeKey,
		Status:         "received",
		Payload:        json.RawMessage(body),
	}

	if p := env.Payload.Payment.Entity; p.ID != "" {
		log.GatewayPaymentID = &p.ID
		if p.OrderID != "" {
			log.GatewayOrderID = &p.OrderID
		}
		if p.Status != "" {
			log.Status = p.Status
		}
		if p.ErrorCode != "" {
			log.ErrorCode = &p.ErrorCode
		}
		if p.ErrorDescription != "" {
			log.ErrorDescription = &p.ErrorDescription
		}
	}
	if r := env.Payload.Refund.Entity; r.ID != "" && r.PaymentID != "" {
		log.GatewayPaymentID = &r.PaymentID
	}
	return log
}

// applySideEffects runs the per-event state machine. Failures here are logged
// and swallowed: the event is already in the audit log and reconciliation
// picks it up, while a non-200 would only provoke gateway retries that the
// dedupe layer would then discard.
func (uc *WebhookUsecase) applySideEffects(ctx context.Context, env *domain.WebhookEnvelope) bool {
	switch env.Event {
	case domain.EventPaymentCaptured, domain.EventPaymentFailed:
		// Audit only. The synchronous settlement path moves balances; these
		// events exist to detect missing or duplicate settlements after the
		// fact.
		return true

	case domain.EventSubscriptionActivated:
		sub := env.Payload.Subscription.Entity
		if err := uc.subRepo.SetPaymentStatus(ctx, sub.ID, domain.SubPaymentActive); err != nil {
			uc.logger.Error("failed to activate subscription from webhook",
				zap.String("gateway_subscription_id", sub.ID),
				zap.Error(err))
			return false
		}
		uc.logger.Info("subscription activated",
			zap.String("gateway_subscription_id", sub.ID))
		return true

	case domain.EventSubscriptionCharged:
		sub := env.Payload.Subscription.Entity
		if err := uc.subRepo.ExtendPeriod(ctx, sub.ID); err != nil {
			uc.logger.Error("failed to extend subscription from webhook",
				zap.String("gateway_subscription_id", sub.ID),
				zap.Error(err))
			return false
		}
		uc.logger.Info("subscription period extended",
			zap.String("gateway_subscription_id", sub.ID),
			zap.Int("paid_count", sub.PaidCount))
		return true

	case domain.EventRefundCreated:
		if err := uc.reverseSettlement(ctx, &env.Payload.Refund.Entity); err != nil {
			uc.logger.Error("failed to reverse settlement for refund",
				zap.String("refund_id", env.Payload.Refund.Entity.ID),
				zap.String("payment_id", env.Payload.Refund.Entity.PaymentID),
				zap.Error(err))
			return false
		}
		return true

	default:
		uc.logger.Info("unrecognized webhook event logged and ignored",
			zap.String("event", string(env.Event)))
		return false
	}
}

// reverseSettlement debits the wallet that the refunded payment credited and
// appends the reversing ledger entry, in one database transaction.
func (uc *WebhookUsecase) reverseSettlement(ctx context.Context, refund *domain.WebhookRefund) error {
	original, err := uc.txRepo.GetByGatewayPaymentID(ctx, refund.PaymentID)
	if err != nil {
		return fmt.Errorf("original settlement not found: %w", err)
	}

	tx, err := uc.walletRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	wallet, err := uc.walletRepo.GetForUpdate(ctx, tx, original.WalletID)
	if err != nil {
		return err
	}

	reversal := &domain.Transaction{
		UserID:           original.UserID,
		WalletID:         wallet.ID,
		Type:             domain.TxTypeWithdrawal,
		Amount:           original.Amount.Neg(),
		Currency:         wallet.Currency,
		Status:           domain.TxStatusCompleted,
		ReferenceID:      refund.ID,
		GatewayPaymentID: &refund.PaymentID,
		Description:      strPtr(fmt.Sprintf("gateway refund of %s", refund.PaymentID)),
	}
	if err := uc.txRepo.Create(ctx, tx, reversal); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// Refund already applied.
			return nil
		}
		return err
	}

	newBalance := wallet.Balance.Sub(original.Amount)
	if err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if err := uc.txRepo.UpdateStatus(ctx, original.ID, domain.TxStatusCancelled); err != nil {
		uc.logger.Warn("failed to mark refunded settlement cancelled",
			zap.Int64("transaction_id", original.ID),
			zap.Error(err))
	}

	uc.logger.Info("refund applied",
		zap.String("refund_id", refund.ID),
		zap.String("payment_id", refund.PaymentID),
		zap.String("wallet_id", wallet.ID),
		zap.String("new_balance", newBalance.String()))
	return nil
}

func strPtr(s string) *string { return &s }
