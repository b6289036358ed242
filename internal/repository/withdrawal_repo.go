package repository

import (
	"context"
	"fmt"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WithdrawalRepository interface {
	// Create inserts the request inside tx, the same transaction that holds
	// the wallet debit.
	Create(ctx context.Context, tx pgx.Tx, wr *domain.WithdrawalRequest) error
	CountPending(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.WithdrawalRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.WithdrawalStatus) error
}

type withdrawalRepo struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepository(db *pgxpool.Pool) WithdrawalRepository {
	return &withdrawalRepo{db: db}
}

func (r *withdrawalRepo) Create(ctx context.Context, tx pgx.Tx, wr *domain.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (
			user_id, wallet_id, amount, currency,
			bank_name, account_number, account_name, ifsc, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		wr.UserID,
		wr.WalletID,
		wr.Amount,
		wr.Currency,
		wr.BankName,
		wr.AccountNumber,
		wr.AccountName,
		wr.IFSC,
		wr.Status,
	).Scan(&wr.ID, &wr.CreatedAt, &wr.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *withdrawalRepo) CountPending(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM withdrawal_requests WHERE user_id = $1 AND status = 'pending'`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}
	return count, nil
}

func (r *withdrawalRepo) ListByUser(ctx context.Context, userID string) ([]*domain.WithdrawalRequest, error) {
	query := `
		SELECT id, user_id, wallet_id, amount, currency,
		       bank_name, account_number, account_name, ifsc, status,
		       created_at, updated_at
		FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.WithdrawalRequest
	for rows.Next() {
		var wr domain.WithdrawalRequest
		err := rows.Scan(
			&wr.ID,
			&wr.UserID,
			&wr.WalletID,
			&wr.Amount,
			&wr.Currency,
			&wr.BankName,
			&wr.AccountNumber,
			&wr.AccountName,
			&wr.IFSC,
			&wr.Status,
			&wr.CreatedAt,
			&wr.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, &wr)
	}
	return requests, rows.Err()
}

func (r *withdrawalRepo) UpdateStatus(ctx context.Context, id string, status domain.WithdrawalStatus) error {
	query := `UPDATE withdrawal_requests SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "withdrawal request", Ref: id}
	}
	return nil
}
