package repository

import (
	"context"
	"errors"
	"fmt"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type TransactionRepository interface {
	// Create inserts a ledger entry inside tx. A duplicate reference_id
	// returns domain.ErrDuplicateReference.
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Transaction, error)
	ListByWallet(ctx context.Context, walletID string, limit int) ([]*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			user_id, wallet_id, type, amount, currency, status,
			reference_id, gateway_order_id, gateway_payment_id, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		t.UserID,
		t.WalletID,
		t.Type,
		t.Amount,
		t.Currency,
		t.Status,
		t.ReferenceID,
		t.GatewayOrderID,
		t.GatewayPaymentID,
		t.Description,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Transaction, error) {
	query := `
		SELECT id, user_id, wallet_id, type, amount, currency, status,
		       reference_id, gateway_order_id, gateway_payment_id, description, created_at
		FROM transactions
		WHERE gateway_payment_id = $1
		ORDER BY id
		LIMIT 1
	`

	var t domain.Transaction
	err := r.db.QueryRow(ctx, query, gatewayPaymentID).Scan(
		&t.ID,
		&t.UserID,
		&t.WalletID,
		&t.Type,
		&t.Amount,
		&t.Currency,
		&t.Status,
		&t.ReferenceID,
		&t.GatewayOrderID,
		&t.GatewayPaymentID,
		&t.Description,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "transaction", Ref: gatewayPaymentID}
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

func (r *transactionRepo) ListByWallet(ctx context.Context, walletID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, user_id, wallet_id, type, amount, currency, status,
		       reference_id, gateway_order_id, gateway_payment_id, description, created_at
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.WalletID,
			&t.Type,
			&t.Amount,
			&t.Currency,
			&t.Status,
			&t.ReferenceID,
			&t.GatewayOrderID,
			&t.GatewayPaymentID,
			&t.Description,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1 WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "transaction", Ref: fmt.Sprintf("%d", id)}
	}
	return nil
}
