package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
	WithdrawalPaid     WithdrawalStatus = "paid"
)

// WithdrawalRequest is a funds-out request. Creation debits the wallet in the
// same database transaction (the hold), so a pending request always has its
// amount already removed from the balance.
type WithdrawalRequest struct {
	ID            string           `json:"id" db:"id"`
	UserID        string           `json:"user_id" db:"user_id"`
	WalletID      string           `json:"wallet_id" db:"wallet_id"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	Currency      string           `json:"currency" db:"currency"`
	BankName      string           `json:"bank_name" db:"bank_name"`
	AccountNumber string           `json:"account_number" db:"account_number"`
	AccountName   string           `json:"account_name" db:"account_name"`
	IFSC          string           `json:"ifsc,omitempty" db:"ifsc"`
	Status        WithdrawalStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// WithdrawalSubmission is the request body for creating a withdrawal.
type WithdrawalSubmission struct {
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	IFSC          string          `json:"ifsc"`
}

func (r *WithdrawalSubmission) Validate() error {
	if r.WalletID == "" {
		return NewValidationError("wallet_id is required")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount must be greater than 0")
	}
	if r.BankName == "" || r.AccountNumber == "" || r.AccountName == "" {
		return NewValidationError("bank_name, account_number and account_name are required")
	}
	return nil
}
