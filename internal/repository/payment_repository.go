package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `
	id, booking_id, amount, currency, status, external_payment_id, refunded_at, refund_amount,
	created_at, updated_at`

type PaymentRepository struct {
	*base.Repository
}

func NewPaymentRepository(repo *base.Repository) *PaymentRepository {
	return &PaymentRepository{Repository: repo}
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var payment model.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ExternalPaymentID,
		&payment.RefundedAt,
		&payment.RefundAmount,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) getOne(ctx context.Context, op, query string, args ...any) (*model.Payment, error) {
	payment, err := scanPayment(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payment, nil
}

// Create создаёт оплату; вторая оплата на то же бронирование даёт ErrDuplicate
func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, currency, status, external_payment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(ctx, query,
		payment.BookingID,
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		payment.ExternalPaymentID,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create payment: %w", ErrDuplicate)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByBookingID получает оплату бронирования
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*model.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE booking_id = $1`
	return r.getOne(ctx, "get payment by booking", query, bookingID)
}

// MarkCompleted переводит оплату в completed. Возвращает nil, если оплата уже completed
// (повторная доставка события) или находится в статусе refunded.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, bookingID int64, externalPaymentID string, at time.Time) (*model.Payment, error) {
	query := `
		UPDATE payments
		SET status = $2, external_payment_id = COALESCE(NULLIF($3, ''), external_payment_id), updated_at = $4
		WHERE booking_id = $1 AND status = ANY($5)
		RETURNING` + paymentColumns

	from := []model.PaymentStatus{model.PaymentStatusPending, model.PaymentStatusFailed}
	return r.getOne(ctx, "mark payment completed", query,
		bookingID, string(model.PaymentStatusCompleted), externalPaymentID, at, statusStrings(from))
}

// MarkFailed переводит ожидающую оплату в failed
func (r *PaymentRepository) MarkFailed(ctx context.Context, bookingID int64, externalPaymentID string, at time.Time) (*model.Payment, error) {
	query := `
		UPDATE payments
		SET status = $2, external_payment_id = COALESCE(NULLIF($3, ''), external_payment_id), updated_at = $4
		WHERE booking_id = $1 AND status = $5
		RETURNING` + paymentColumns

	return r.getOne(ctx, "mark payment failed", query,
		bookingID, string(model.PaymentStatusFailed), externalPaymentID, at, string(model.PaymentStatusPending))
}
