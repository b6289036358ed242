package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"billing-service/internal/domain"
	"billing-service/internal/usecase"

	"go.uber.org/zap"
)

type SettlementService interface {
	SettleDeposit(ctx context.Context, principal domain.Principal, req *domain.SettleDepositRequest) (*usecase.DepositSettlement, error)
	SettleSubscription(ctx context.Context, principal domain.Principal, req *domain.SettleSubscriptionRequest) (*domain.Subscription, error)
}

type SettlementHandler struct {
	settlements SettlementService
	logger      *zap.Logger
}

func NewSettlementHandler(settlements SettlementService, logger *zap.Logger) *SettlementHandler {
	return &SettlementHandler{settlements: settlements, logger: logger}
}

// HandleVerifyDeposit settles a deposit from the client's payment
// confirmation.
func (h *SettlementHandler) HandleVerifyDeposit(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req domain.SettleDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.settlements.SettleDeposit(r.Context(), principal, &req)
	if err != nil {
		h.logger.Error("deposit settlement failed",
			zap.String("user_id", principal.UserID),
			zap.String("payment_id", req.PaymentID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "payment verified", result)
}

func (h *SettlementHandler) HandleVerifySubscription(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req domain.SettleSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sub, err := h.settlements.SettleSubscription(r.Context(), principal, &req)
	if err != nil {
		h.logger.Error("subscription settlement failed",
			zap.String("user_id", principal.UserID),
			zap.String("payment_id", req.PaymentID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "subscription verified", sub)
}
