package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, teacher_id, balance, pending_balance, total_earned, created_at, updated_at`

// WalletRepository хранит кошельки учителей и журнал операций.
// Изменения баланса делаются атомарным UPDATE, без чтения в приложение.
type WalletRepository struct {
	*base.Repository
}

func NewWalletRepository(repo *base.Repository) *WalletRepository {
	return &WalletRepository{Repository: repo}
}

func scanWallet(row pgx.Row) (*model.TeacherWallet, error) {
	var wallet model.TeacherWallet
	err := row.Scan(
		&wallet.ID,
		&wallet.TeacherID,
		&wallet.Balance,
		&wallet.PendingBalance,
		&wallet.TotalEarned,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) getOne(ctx context.Context, op, query string, args ...any) (*model.TeacherWallet, error) {
	wallet, err := scanWallet(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return wallet, nil
}

// GetOrCreate возвращает кошелёк учителя, создавая пустой при первом обращении
func (r *WalletRepository) GetOrCreate(ctx context.Context, teacherID int64) (*model.TeacherWallet, error) {
	_, err := r.ExecAffected(ctx, `
		INSERT INTO teacher_wallets (teacher_id) VALUES ($1)
		ON CONFLICT (teacher_id) DO NOTHING
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	wallet, err := r.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("ensure wallet: wallet for teacher %d vanished", teacherID)
	}
	return wallet, nil
}

// GetByTeacherID получает кошелёк учителя
func (r *WalletRepository) GetByTeacherID(ctx context.Context, teacherID int64) (*model.TeacherWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM teacher_wallets WHERE teacher_id = $1`
	return r.getOne(ctx, "get wallet by teacher", query, teacherID)
}

// GetForUpdate блокирует строку кошелька до конца транзакции
func (r *WalletRepository) GetForUpdate(ctx context.Context, teacherID int64) (*model.TeacherWallet, error) {
	query := `SELECT ` + walletColumns + ` FROM teacher_wallets WHERE teacher_id = $1 FOR UPDATE`
	return r.getOne(ctx, "lock wallet", query, teacherID)
}

// Credit увеличивает balance и total_earned
func (r *WalletRepository) Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	query := `
		UPDATE teacher_wallets
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + walletColumns
	return r.getOne(ctx, "credit wallet", query, walletID, amount)
}

// Reserve переносит amount из balance в pending_balance. nil, если средств недостаточно.
func (r *WalletRepository) Reserve(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	query := `
		UPDATE teacher_wallets
		SET balance = balance - $2, pending_balance = pending_balance + $2, updated_at = now()
		WHERE id = $1 AND balance >= $2
		RETURNING ` + walletColumns
	return r.getOne(ctx, "reserve wallet funds", query, walletID, amount)
}

// Release возвращает зарезервированную сумму в balance
func (r *WalletRepository) Release(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	query := `
		UPDATE teacher_wallets
		SET balance = balance + $2, pending_balance = pending_balance - $2, updated_at = now()
		WHERE id = $1 AND pending_balance >= $2
		RETURNING ` + walletColumns
	return r.getOne(ctx, "release wallet funds", query, walletID, amount)
}

// Settle списывает зарезервированную сумму, деньги ушли с платформы
func (r *WalletRepository) Settle(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error) {
	query := `
		UPDATE teacher_wallets
		SET pending_balance = pending_balance - $2, updated_at = now()
		WHERE id = $1 AND pending_balance >= $2
		RETURNING ` + walletColumns
	return r.getOne(ctx, "settle wallet funds", query, walletID, amount)
}

// AppendTransaction добавляет запись в журнал
func (r *WalletRepository) AppendTransaction(ctx context.Context, txn *model.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (wallet_id, type, amount, description, booking_id, payment_id, payout_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		txn.WalletID,
		string(txn.Type),
		txn.Amount,
		txn.Description,
		txn.BookingID,
		txn.PaymentID,
		txn.PayoutID,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append wallet transaction: %w", err)
	}
	return nil
}

// ListTransactions журнал кошелька, новые записи первыми
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID int64, limit, offset int) ([]*model.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, description, booking_id, payment_id, payout_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get wallet transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*model.WalletTransaction, 0)
	for rows.Next() {
		var txn model.WalletTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.WalletID,
			&txn.Type,
			&txn.Amount,
			&txn.Description,
			&txn.BookingID,
			&txn.PaymentID,
			&txn.PayoutID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		transactions = append(transactions, &txn)
	}

	return transactions, rows.Err()
}

// LedgerTotals суммы по журналу кошелька
func (r *WalletRepository) LedgerTotals(ctx context.Context, walletID int64) (*model.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'credit' AND payout_id IS NULL), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1
	`

	var totals model.LedgerTotals
	err := r.QueryRow(ctx, query, walletID).Scan(&totals.Credits, &totals.EarnedCredits, &totals.Debits)
	if err != nil {
		return nil, fmt.Errorf("get ledger totals: %w", err)
	}
	return &totals, nil
}
