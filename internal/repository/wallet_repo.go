package repository

import (
	"context"
	"errors"
	"fmt"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetByID(ctx context.Context, walletID string) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, walletID string) (*domain.Wallet, error)
	EnsureForUpdate(ctx context.Context, tx pgx.Tx, userID, currency string) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID string, balance decimal.Decimal) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Wallet, error)
}

type walletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

const walletColumns = `id, user_id, currency, balance, is_primary, version, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Currency,
		&w.Balance,
		&w.IsPrimary,
		&w.Version,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepo) GetByID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	wallet, err := scanWallet(r.db.QueryRow(ctx, query, walletID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "wallet", Ref: walletID}
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// GetForUpdate locks the wallet row for the duration of tx. Every
// read-compute-write balance sequence must go through this lock.
func (r *walletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	wallet, err := scanWallet(tx.QueryRow(ctx, query, walletID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Entity: "wallet", Ref: walletID}
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return wallet, nil
}

// EnsureForUpdate creates the (user, currency) wallet if it does not exist and
// returns it locked. Used for lazily-created transfer recipient wallets.
func (r *walletRepo) EnsureForUpdate(ctx context.Context, tx pgx.Tx, userID, currency string) (*domain.Wallet, error) {
	insert := `
		INSERT INTO wallets (user_id, currency, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, currency) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, userID, currency); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE`
	wallet, err := scanWallet(tx.QueryRow(ctx, query, userID, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet for user %s: %w", userID, err)
	}
	return wallet, nil
}

func (r *walletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID string, balance decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "wallet", Ref: walletID}
	}
	return nil
}

func (r *walletRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 ORDER BY is_primary DESC, currency`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}
