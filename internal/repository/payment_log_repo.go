package repository

import (
	"context"
	"errors"
	"fmt"

	"billing-service/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentLogRepository interface {
	// Insert appends an audit row. The unique (event_type, gateway_event_id)
	// constraint turns concurrent duplicate deliveries into
	// domain.ErrDuplicateEvent, closing the check-then-insert race.
	Insert(ctx context.Context, log *domain.PaymentLog) error
	ListByPaymentID(ctx context.Context, gatewayPaymentID string) ([]*domain.PaymentLog, error)
}

type paymentLogRepo struct {
	db *pgxpool.Pool
}

func NewPaymentLogRepository(db *pgxpool.Pool) PaymentLogRepository {
	return &paymentLogRepo{db: db}
}

func (r *paymentLogRepo) Insert(ctx context.Context, log *domain.PaymentLog) error {
	query := `
		INSERT INTO payment_logs (
			event_type, gateway_event_id, gateway_payment_id, gateway_order_id,
			status, error_code, error_description, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, received_at
	`

	err := r.db.QueryRow(ctx, query,
		log.EventType,
		log.GatewayEventID,
		log.GatewayPaymentID,
		log.GatewayOrderID,
		log.Status,
		log.ErrorCode,
		log.ErrorDescription,
		log.Payload,
	).Scan(&log.ID, &log.ReceivedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to insert payment log: %w", err)
	}
	return nil
}

func (r *paymentLogRepo) ListByPaymentID(ctx context.Context, gatewayPaymentID string) ([]*domain.PaymentLog, error) {
	query := `
		SELECT id, event_type, gateway_event_id, gateway_payment_id, gateway_order_id,
		       status, error_code, error_description, payload, received_at
		FROM payment_logs
		WHERE gateway_payment_id = $1
		ORDER BY received_at
	`

	rows, err := r.db.Query(ctx, query, gatewayPaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.PaymentLog
	for rows.Next() {
		var l domain.PaymentLog
		err := rows.Scan(
			&l.ID,
			&l.EventType,
			&l.GatewayEventID,
			&l.GatewayPaymentID,
			&l.GatewayOrderID,
			&l.Status,
			&l.ErrorCode,
			&l.ErrorDescription,
			&l.Payload,
			&l.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
