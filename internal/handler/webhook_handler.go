package handler

import (
	"context"
	"io"
	"net/http"

	"billing-service/internal/usecase"

	"go.uber.org/zap"
)

// SignatureHeader carries the gateway's HMAC over the raw request body.
const SignatureHeader = "X-Razorpay-Signature"

type WebhookService interface {
	Ingest(ctx context.Context, body []byte, providedSignature string) (*usecase.IngestResult, error)
}

type WebhookHandler struct {
	webhooks WebhookService
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// HandleGatewayWebhook ingests an asynchronous gateway event. Signature or
// envelope failures return 400; everything else returns 200 so the gateway
// stops redelivering.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	sig := r.Header.Get(SignatureHeader)
	if sig == "" {
		h.logger.Warn("webhook missing signature header",
			zap.String("remote_addr", r.RemoteAddr))
		sendError(w, http.StatusBadRequest, "missing signature header", nil)
		return
	}

	result, err := h.webhooks.Ingest(r.Context(), body, sig)
	if err != nil {
		h.logger.Warn("webhook ingestion rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		sendDomainError(w, err)
		return
	}

	sendSuccess(w, http.StatusOK, "webhook processed", result)
}
