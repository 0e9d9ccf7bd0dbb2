package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
)

type RevenueRepository struct {
	*base.Repository
}

func NewRevenueRepository(repo *base.Repository) *RevenueRepository {
	return &RevenueRepository{Repository: repo}
}

// Append добавляет долю платформы по оплате
func (r *RevenueRepository) Append(ctx context.Context, revenue *model.PlatformRevenue) error {
	query := `
		INSERT INTO platform_revenues (booking_id, payment_id, gross_amount, platform_fee, teacher_earning, fee_percent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		revenue.BookingID,
		revenue.PaymentID,
		revenue.GrossAmount,
		revenue.PlatformFee,
		revenue.TeacherEarning,
		revenue.FeePercent,
	).Scan(&revenue.ID, &revenue.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("append platform revenue: %w", ErrDuplicate)
		}
		return fmt.Errorf("append platform revenue: %w", err)
	}
	return nil
}

// Totals суммарный доход платформы
func (r *RevenueRepository) Totals(ctx context.Context) (*model.RevenueTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(gross_amount), 0), COALESCE(SUM(platform_fee), 0), COALESCE(SUM(teacher_earning), 0)
		FROM platform_revenues
	`

	var totals model.RevenueTotals
	err := r.QueryRow(ctx, query).Scan(
		&totals.Bookings,
		&totals.GrossAmount,
		&totals.PlatformFee,
		&totals.TeacherEarning,
	)
	if err != nil {
		return nil, fmt.Errorf("get revenue totals: %w", err)
	}
	return &totals, nil
}
