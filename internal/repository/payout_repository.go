package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const payoutColumns = `
	id, teacher_id, wallet_id, amount, status, approved_at, approved_by, rejection_reason, processed_at,
	created_at, updated_at`

type PayoutRepository struct {
	*base.Repository
}

func NewPayoutRepository(repo *base.Repository) *PayoutRepository {
	return &PayoutRepository{Repository: repo}
}

func scanPayout(row pgx.Row) (*model.PayoutRequest, error) {
	var payout model.PayoutRequest
	err := row.Scan(
		&payout.ID,
		&payout.TeacherID,
		&payout.WalletID,
		&payout.Amount,
		&payout.Status,
		&payout.ApprovedAt,
		&payout.ApprovedBy,
		&payout.RejectionReason,
		&payout.ProcessedAt,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) getOne(ctx context.Context, op, query string, args ...any) (*model.PayoutRequest, error) {
	payout, err := scanPayout(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payout, nil
}

func (r *PayoutRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.PayoutRequest, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	payouts := make([]*model.PayoutRequest, 0)
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout request: %w", err)
		}
		payouts = append(payouts, payout)
	}
	return payouts, rows.Err()
}

// Create создаёт заявку; вторая pending-заявка учителя даёт ErrDuplicate
func (r *PayoutRepository) Create(ctx context.Context, payout *model.PayoutRequest) error {
	query := `
		INSERT INTO payout_requests (teacher_id, wallet_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(ctx, query,
		payout.TeacherID,
		payout.WalletID,
		payout.Amount,
		string(payout.Status),
	).Scan(&payout.ID, &payout.CreatedAt, &payout.UpdatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create payout request: %w", ErrDuplicate)
		}
		return fmt.Errorf("create payout request: %w", err)
	}
	return nil
}

// GetByID получает заявку по ID
func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*model.PayoutRequest, error) {
	query := `SELECT` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	return r.getOne(ctx, "get payout request by id", query, id)
}

// HasPending проверяет наличие pending-заявки у учителя
func (r *PayoutRepository) HasPending(ctx context.Context, teacherID int64) (bool, error) {
	var exists bool
	err := r.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payout_requests WHERE teacher_id = $1 AND status = $2)`,
		teacherID, string(model.PayoutStatusPending),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending payout: %w", err)
	}
	return exists, nil
}

// OpenAmount сумма заявок, деньги по которым ещё зарезервированы (pending и approved)
func (r *PayoutRepository) OpenAmount(ctx context.Context, teacherID int64) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payout_requests WHERE teacher_id = $1 AND status = ANY($2)`,
		teacherID, statusStrings([]model.PayoutStatus{model.PayoutStatusPending, model.PayoutStatusApproved}),
	).Scan(&amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get open payout amount: %w", err)
	}
	return amount, nil
}

// ListByTeacher заявки учителя, новые первыми
func (r *PayoutRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.PayoutRequest, error) {
	query := `SELECT` + payoutColumns + ` FROM payout_requests WHERE teacher_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, "get payout requests by teacher", query, teacherID)
}

// ListByStatus заявки в статусе, старые первыми
func (r *PayoutRepository) ListByStatus(ctx context.Context, status model.PayoutStatus) ([]*model.PayoutRequest, error) {
	query := `SELECT` + payoutColumns + ` FROM payout_requests WHERE status = $1 ORDER BY created_at, id`
	return r.list(ctx, "get payout requests by status", query, string(status))
}

// Approve pending -> approved
func (r *PayoutRepository) Approve(ctx context.Context, id, adminID int64, at time.Time) (*model.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $2, approved_by = $3, approved_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING` + payoutColumns
	return r.getOne(ctx, "approve payout request", query,
		id, string(model.PayoutStatusApproved), adminID, at, string(model.PayoutStatusPending))
}

// Reject pending -> rejected
func (r *PayoutRepository) Reject(ctx context.Context, id, adminID int64, reason string, at time.Time) (*model.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $2, approved_by = $3, rejection_reason = $4, processed_at = $5, updated_at = $5
		WHERE id = $1 AND status = $6
		RETURNING` + payoutColumns
	return r.getOne(ctx, "reject payout request", query,
		id, string(model.PayoutStatusRejected), adminID, reason, at, string(model.PayoutStatusPending))
}

// Complete approved -> completed
func (r *PayoutRepository) Complete(ctx context.Context, id int64, at time.Time) (*model.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $2, processed_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING` + payoutColumns
	return r.getOne(ctx, "complete payout request", query,
		id, string(model.PayoutStatusCompleted), at, string(model.PayoutStatusApproved))
}
