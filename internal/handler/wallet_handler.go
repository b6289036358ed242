package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"billing-service/internal/domain"
	"billing-service/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LedgerService is the money-moving surface of the transfer usecase.
type LedgerService interface {
	RequestWithdrawal(ctx context.Context, principal domain.Principal, req *domain.WithdrawalSubmission) (*domain.WithdrawalRequest, error)
	Transfer(ctx context.Context, principal domain.Principal, req *domain.TransferRequest) (*domain.TransferResult, error)
}

type WalletHandler struct {
	wallets     repository.WalletRepository
	txns        repository.TransactionRepository
	subs        repository.SubscriptionRepository
	withdrawals repository.WithdrawalRepository
	ledger      LedgerService
	logger      *zap.Logger
}

func NewWalletHandler(
	wallets repository.WalletRepository,
	txns repository.TransactionRepository,
	subs repository.SubscriptionRepository,
	withdrawals repository.WithdrawalRepository,
	ledger LedgerService,
	logger *zap.Logger,
) *WalletHandler {
	return &WalletHandler{
		wallets:     wallets,
		txns:        txns,
		subs:        subs,
		withdrawals: withdrawals,
		ledger:      ledger,
		logger:      logger,
	}
}

func (h *WalletHandler) HandleListWallets(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	wallets, err := h.wallets.ListByUser(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("failed to list wallets",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "wallets", wallets)
}

func (h *WalletHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	walletID := chi.URLParam(r, "wallet_id")
	wallet, err := h.wallets.GetByID(r.Context(), walletID)
	if err != nil {
		sendDomainError(w, err)
		return
	}
	if wallet.UserID != principal.UserID {
		sendDomainError(w, &domain.NotFoundError{Entity: "wallet", Ref: walletID})
		return
	}

	txns, err := h.txns.ListByWallet(r.Context(), walletID, 50)
	if err != nil {
		h.logger.Error("failed to list transactions",
			zap.String("wallet_id", walletID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "transactions", txns)
}

func (h *WalletHandler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	sub, err := h.subs.GetByUserID(r.Context(), principal.UserID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			sendSuccess(w, http.StatusOK, "no subscription", nil)
			return
		}
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "subscription", sub)
}

func (h *WalletHandler) HandleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	requests, err := h.withdrawals.ListByUser(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("failed to list withdrawals",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "withdrawal requests", requests)
}

func (h *WalletHandler) HandleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req domain.WithdrawalSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	wr, err := h.ledger.RequestWithdrawal(r.Context(), principal, &req)
	if err != nil {
		h.logger.Error("withdrawal request failed",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusCreated, "withdrawal requested", wr)
}

func (h *WalletHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), principal, &req)
	if err != nil {
		h.logger.Error("transfer failed",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "transfer completed", result)
}
