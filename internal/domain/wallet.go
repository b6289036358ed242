package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string
type TransactionStatus string

const (
	TxTypeDeposit     TransactionType = "deposit"
	TxTypeWithdrawal  TransactionType = "withdrawal"
	TxTypeTransferIn  TransactionType = "transfer_in"
	TxTypeTransferOut TransactionType = "transfer_out"
	TxTypeExchange    TransactionType = "exchange"
)

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

// Wallet holds a user's balance in a single currency. One row per
// (user_id, currency); balances are in major units and mutated only under a
// row lock inside a single database transaction.
type Wallet struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Currency  string          `json:"currency" db:"currency"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	IsPrimary bool            `json:"is_primary" db:"is_primary"`
	Version   int64           `json:"-" db:"version"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Transaction is an append-only ledger entry. Amounts are signed: credits
// positive, debits negative. Rows never change after insert except the
// pending -> completed/failed/cancelled status transition.
type Transaction struct {
	ID               int64             `json:"id" db:"id"`
	UserID           string            `json:"user_id" db:"user_id"`
	WalletID         string            `json:"wallet_id" db:"wallet_id"`
	Type             TransactionType   `json:"type" db:"type"`
	Amount           decimal.Decimal   `json:"amount" db:"amount"`
	Currency         string            `json:"currency" db:"currency"`
	Status           TransactionStatus `json:"status" db:"status"`
	ReferenceID      string            `json:"reference_id" db:"reference_id"`
	GatewayOrderID   *string           `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string           `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	Description      *string           `json:"description,omitempty" db:"description"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}

// TransferRequest is a peer-to-peer balance transfer submission.
type TransferRequest struct {
	RecipientEmail string          `json:"recipient_email"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

func (r *TransferRequest) Validate() error {
	if r.RecipientEmail == "" {
		return NewValidationError("recipient_email is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount must be greater than 0")
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	return nil
}

// TransferResult reports both legs of a completed transfer.
type TransferResult struct {
	Reference       string          `json:"reference"`
	SenderBalance   decimal.Decimal `json:"sender_balance"`
	RecipientUserID string          `json:"recipient_user_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// DirectoryUser is the auth provider's view of a user, resolved by email.
type DirectoryUser struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}
