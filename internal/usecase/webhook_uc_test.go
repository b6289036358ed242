package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"billing-service/internal/domain"
	"billing-service/pkg/signature"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test"

func newWebhookUsecase(s *fakeStore) *WebhookUsecase {
	return NewWebhookUsecase(
		&fakePaymentLogRepo{s: s},
		&fakeSubscriptionRepo{s: s},
		&fakeWalletRepo{s: s},
		&fakeTransactionRepo{s: s},
		nil,
		testWebhookSecret,
		zap.NewNop(),
	)
}

func signBody(body []byte) string {
	return signature.Compute(testWebhookSecret, body)
}

func paymentCapturedBody(eventID, paymentID, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"event_id": %q,
		"payload": {"payment": {"entity": {"id": %q, "order_id": %q, "status": "captured", "amount": 83500, "currency": "INR"}}}
	}`, eventID, paymentID, orderID))
}

func refundCreatedBody(eventID, refundID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "refund.created",
		"event_id": %q,
		"payload": {"refund": {"entity": {"id": %q, "payment_id": %q, "amount": 5000, "currency": "INR", "status": "processed"}}}
	}`, eventID, refundID, paymentID))
}

func TestIngestRejectsBadSignature(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	body := paymentCapturedBody("evt_1", "pay_1", "order_1")

	_, err := uc.Ingest(context.Background(), body, "deadbeef")
	require.Error(t, err)

	var authErr *domain.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Empty(t, store.logs, "rejected events are not logged")
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)

	for _, body := range [][]byte{
		[]byte("not json at all"),
		[]byte(`{}`),
		[]byte(`{"event": "payment.captured", "payload": {}}`),
	} {
		_, err := uc.Ingest(context.Background(), body, signBody(body))
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr, "body %q", body)
	}
	assert.Empty(t, store.logs)
}

func TestIngestLogsPaymentCaptured(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	body := paymentCapturedBody("evt_1", "pay_1", "order_1")

	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)

	assert.Equal(t, domain.EventPaymentCaptured, result.Event)
	assert.False(t, result.Duplicate)
	assert.True(t, result.Handled)

	require.Len(t, store.logs, 1)
	log := store.logs[0]
	assert.Equal(t, domain.EventPaymentCaptured, log.EventType)
	assert.Equal(t, "evt_1", log.GatewayEventID)
	require.NotNil(t, log.GatewayPaymentID)
	assert.Equal(t, "pay_1", *log.GatewayPaymentID)
	require.NotNil(t, log.GatewayOrderID)
	assert.Equal(t, "order_1", *log.GatewayOrderID)
	assert.Equal(t, "captured", log.Status)
	assert.True(t, json.Valid(log.Payload))
}

func TestIngestDuplicateEventLoggedOnce(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	body := paymentCapturedBody("evt_1", "pay_1", "order_1")

	first, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.True(t, second.Handled)

	assert.Len(t, store.logs, 1)
}

func TestIngestPaymentFailedRecordsError(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	body := []byte(`{
		"event": "payment.failed",
		"event_id": "evt_fail_1",
		"payload": {"payment": {"entity": {"id": "pay_9", "order_id": "order_9", "status": "failed", "error_code": "BAD_REQUEST_ERROR", "error_description": "Payment declined"}}}
	}`)

	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.Handled)

	require.Len(t, store.logs, 1)
	log := store.logs[0]
	assert.Equal(t, "failed", log.Status)
	require.NotNil(t, log.ErrorCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", *log.ErrorCode)
	require.NotNil(t, log.ErrorDescription)
	assert.Equal(t, "Payment declined", *log.ErrorDescription)

	assert.Empty(t, store.txns, "failed payments never touch the ledger")
}

func TestIngestUnknownEventLoggedNotHandled(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	body := []byte(`{"event": "invoice.paid", "event_id": "evt_inv_1", "payload": {}}`)

	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.False(t, result.Handled)
	assert.Len(t, store.logs, 1, "unknown events still land in the audit log")
}

func TestIngestSubscriptionActivated(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)

	gwSubID := "sub_77"
	cycle := domain.CycleMonthly
	require.NoError(t, (&fakeSubscriptionRepo{s: store}).Upsert(context.Background(), &domain.Subscription{
		UserID:                "user-1",
		Plan:                  domain.PlanBasic,
		BillingCycle:          &cycle,
		GatewaySubscriptionID: &gwSubID,
		PaymentStatus:         domain.SubPaymentCompleted,
		StartDate:             time.Now(),
		EndDate:               time.Now().AddDate(0, 1, 0),
	}))

	body := []byte(`{
		"event": "subscription.activated",
		"event_id": "evt_act_1",
		"payload": {"subscription": {"entity": {"id": "sub_77", "status": "active"}}}
	}`)

	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.Handled)

	assert.Equal(t, domain.SubPaymentActive, store.subs["user-1"].PaymentStatus)
}

func TestIngestSubscriptionChargedExtendsPeriod(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)

	gwSubID := "sub_77"
	cycle := domain.CycleMonthly
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, (&fakeSubscriptionRepo{s: store}).Upsert(context.Background(), &domain.Subscription{
		UserID:                "user-1",
		Plan:                  domain.PlanBasic,
		BillingCycle:          &cycle,
		GatewaySubscriptionID: &gwSubID,
		PaymentStatus:         domain.SubPaymentActive,
		StartDate:             end.AddDate(0, -1, 0),
		EndDate:               end,
	}))

	body := []byte(`{
		"event": "subscription.charged",
		"event_id": "evt_chg_1",
		"payload": {"subscription": {"entity": {"id": "sub_77", "status": "active", "paid_count": 2}}}
	}`)

	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.Handled)

	sub := store.subs["user-1"]
	assert.Equal(t, end.AddDate(0, 1, 0), sub.EndDate)
	assert.Equal(t, domain.SubPaymentActive, sub.PaymentStatus)
}

func seedSettledDeposit(store *fakeStore, walletID, userID, paymentID string, amount decimal.Decimal) *domain.Transaction {
	store.nextTxID++
	gwPaymentID := paymentID
	entry := &domain.Transaction{
		ID:               store.nextTxID,
		UserID:           userID,
		WalletID:         walletID,
		Type:             domain.TxTypeDeposit,
		Amount:           amount,
		Currency:         "INR",
		Status:           domain.TxStatusCompleted,
		ReferenceID:      paymentID,
		GatewayPaymentID: &gwPaymentID,
		CreatedAt:        time.Now(),
	}
	store.txns = append(store.txns, entry)
	store.refs[paymentID] = true
	return entry
}

func TestIngestRefundReversesSettlement(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	wallet := store.addWallet("user-1", "INR", decimal.NewFromInt(150))
	seedSettledDeposit(store, wallet.ID, "user-1", "pay_1", decimal.NewFromInt(50))

	body := refundCreatedBody("evt_rf_1", "rfnd_1", "pay_1")
	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.Handled)

	assert.True(t, store.balance(wallet.ID).Equal(decimal.NewFromInt(100)), "refund debits the credited wallet")

	require.Len(t, store.txns, 2)
	reversal := store.txns[1]
	assert.Equal(t, domain.TxTypeWithdrawal, reversal.Type)
	assert.True(t, reversal.Amount.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, "rfnd_1", reversal.ReferenceID)
	assert.Equal(t, domain.TxStatusCompleted, reversal.Status)

	assert.Equal(t, domain.TxStatusCancelled, store.txns[0].Status, "original settlement marked reversed")
}

func TestIngestRefundReplayDebitsOnce(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	wallet := store.addWallet("user-1", "INR", decimal.NewFromInt(150))
	seedSettledDeposit(store, wallet.ID, "user-1", "pay_1", decimal.NewFromInt(50))

	for _, eventID := range []string{"evt_rf_1", "evt_rf_2"} {
		body := refundCreatedBody(eventID, "rfnd_1", "pay_1")
		result, err := uc.Ingest(context.Background(), body, signBody(body))
		require.NoError(t, err)
		assert.True(t, result.Handled)
	}

	assert.True(t, store.balance(wallet.ID).Equal(decimal.NewFromInt(100)), "redelivered refund must not debit twice")
	assert.Len(t, store.txns, 2)
}

func TestIngestRefundForUnknownPaymentIsAuditOnly(t *testing.T) {
	store := newFakeStore()
	uc := newWebhookUsecase(store)
	wallet := store.addWallet("user-1", "INR", decimal.NewFromInt(150))

	body := refundCreatedBody("evt_rf_1", "rfnd_1", "pay_unknown")
	result, err := uc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err, "side effect failures never bubble to the gateway")

	assert.False(t, result.Handled)
	assert.Len(t, store.logs, 1)
	assert.True(t, store.balance(wallet.ID).Equal(decimal.NewFromInt(150)))
}
