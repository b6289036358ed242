package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"billing-service/internal/domain"
	"billing-service/internal/provider"

	"go.uber.org/zap"
)

// OrderService is the checkout surface of the order usecase.
type OrderService interface {
	CreateDepositOrder(ctx context.Context, principal domain.Principal, req *domain.DepositOrderRequest) (*domain.DepositOrder, error)
	CreateSubscription(ctx context.Context, principal domain.Principal, req *domain.SubscriptionCheckoutRequest) (*provider.SubscriptionResponse, error)
	StartTrial(ctx context.Context, principal domain.Principal) (*domain.Subscription, error)
}

type OrderHandler struct {
	orders OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

func (h *OrderHandler) HandleCreateDepositOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req domain.DepositOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	order, err := h.orders.CreateDepositOrder(r.Context(), principal, &req)
	if err != nil {
		h.logger.Error("failed to create deposit order",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "order created", order)
}

func (h *OrderHandler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req domain.SubscriptionCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sub, err := h.orders.CreateSubscription(r.Context(), principal, &req)
	if err != nil {
		h.logger.Error("failed to create subscription",
			zap.String("user_id", principal.UserID),
			zap.String("plan", string(req.Plan)),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "subscription created", map[string]interface{}{
		"subscription_id": sub.SubscriptionID,
		"checkout_url":    sub.ShortURL,
		"status":          sub.Status,
	})
}

func (h *OrderHandler) HandleStartTrial(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	sub, err := h.orders.StartTrial(r.Context(), principal)
	if err != nil {
		h.logger.Error("failed to start trial",
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "trial started", sub)
}
