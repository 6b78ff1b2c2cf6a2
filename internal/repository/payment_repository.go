package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shopsphere/internal/models"
)

type paymentRepo struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepo{db: db}
}

const paymentSelect = `SELECT
	id,
	reference,
	order_id,
	user_id,
	amount,
	currency,
	status,
	COALESCE(card_last_four, ''),
	COALESCE(card_brand, ''),
	COALESCE(card_holder_name, ''),
	error_message,
	created_at,
	updated_at,
	paid_at
	FROM payments
	`

func scanPayment(row pgx.Row, p *models.Payment) error {
	return row.Scan(
		&p.ID,
		&p.Reference,
		&p.OrderID,
		&p.UserID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.CardLastFour,
		&p.CardBrand,
		&p.CardHolderName,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.PaidAt,
	)
}

func (r *paymentRepo) Upsert(ctx context.Context, p *models.Payment) error {
	if p.OrderID <= 0 || p.UserID <= 0 {
		return fmt.Errorf("%w: order and user required", ErrInvalidInput)
	}
	if p.Reference == "" {
		return fmt.Errorf("%w: payment reference required", ErrInvalidInput)
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}

	// A retried payment keeps the reference issued on the first attempt.
	sql := `INSERT INTO payments (
		reference,
		order_id,
		user_id,
		amount,
		currency,
		status,
		card_last_four,
		card_brand,
		card_holder_name,
		error_message,
		paid_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (order_id) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		amount = EXCLUDED.amount,
		currency = EXCLUDED.currency,
		status = EXCLUDED.status,
		card_last_four = EXCLUDED.card_last_four,
		card_brand = EXCLUDED.card_brand,
		card_holder_name = EXCLUDED.card_holder_name,
		error_message = EXCLUDED.error_message,
		paid_at = EXCLUDED.paid_at,
		updated_at = NOW()
	RETURNING id, reference, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql,
		p.Reference,
		p.OrderID,
		p.UserID,
		p.Amount,
		p.Currency,
		p.Status,
		p.CardLastFour,
		p.CardBrand,
		p.CardHolderName,
		p.ErrorMessage,
		p.PaidAt,
	).Scan(&p.ID, &p.Reference, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment reference %s", ErrDuplicate, p.Reference)
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to save payment for order %d: %w", p.OrderID, err)
	}

	return nil
}

func (r *paymentRepo) GetByOrderID(ctx context.Context, orderID int) (*models.Payment, error) {
	var p models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, paymentSelect+`WHERE order_id = $1`, orderID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment for order %d: %w", orderID, err)
	}

	return &p, nil
}

func (r *paymentRepo) GetByUserID(ctx context.Context, userID int) ([]models.Payment, error) {
	rows, err := r.db.Query(ctx, paymentSelect+`WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments by user %d: %w", userID, err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan payments: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return payments, nil
}
