package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultTransactionsLimit = 50
	maxTransactionsLimit     = 200
)

var hundred = decimal.NewFromInt(100)

// WalletService ведёт кошельки учителей и заявки на выплату.
// Кешированные поля кошелька меняются только вместе с записью в журнале.
type WalletService struct {
	tx         Transactor
	wallets    WalletStore
	payouts    PayoutStore
	revenues   RevenueStore
	teachers   TeacherStore
	notifier   Notifier
	feePercent decimal.Decimal
	now        func() time.Time
	logger     *zap.Logger
}

func NewWalletService(
	tx Transactor,
	wallets WalletStore,
	payouts PayoutStore,
	revenues RevenueStore,
	teachers TeacherStore,
	notifier Notifier,
	feePercent decimal.Decimal,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		tx:         tx,
		wallets:    wallets,
		payouts:    payouts,
		revenues:   revenues,
		teachers:   teachers,
		notifier:   notifier,
		feePercent: feePercent,
		now:        time.Now,
		logger:     logger,
	}
}

// SplitFee делит оплату на комиссию платформы и заработок учителя
func SplitFee(gross, feePercent decimal.Decimal) (fee, earning decimal.Decimal) {
	fee = gross.Mul(feePercent).Div(hundred).Round(2)
	return fee, gross.Sub(fee)
}

// CreditWallet зачисляет заработок учителя по оплаченному бронированию.
// Единственное место, где растёт total_earned.
func (s *WalletService) CreditWallet(ctx context.Context, teacherID int64, grossAmount decimal.Decimal, bookingID, paymentID int64) (*model.WalletTransaction, error) {
	if !grossAmount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}

	fee, earning := SplitFee(grossAmount, s.feePercent)

	var txn *model.WalletTransaction
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		wallet, err := s.wallets.GetOrCreate(ctx, teacherID)
		if err != nil {
			return fmt.Errorf("get wallet: %w", err)
		}

		if earning.IsPositive() {
			if _, err := s.wallets.Credit(ctx, wallet.ID, earning); err != nil {
				return fmt.Errorf("credit wallet: %w", err)
			}

			txn = &model.WalletTransaction{
				WalletID:    wallet.ID,
				Type:        model.TransactionTypeCredit,
				Amount:      earning,
				Description: fmt.Sprintf("Оплата бронирования #%d", bookingID),
				BookingID:   &bookingID,
				PaymentID:   &paymentID,
			}
			if err := s.wallets.AppendTransaction(ctx, txn); err != nil {
				return err
			}
		}

		revenue := &model.PlatformRevenue{
			BookingID:      bookingID,
			PaymentID:      paymentID,
			GrossAmount:    grossAmount,
			PlatformFee:    fee,
			TeacherEarning: earning,
			FeePercent:     s.feePercent,
		}
		if err := s.revenues.Append(ctx, revenue); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: booking %d is already credited", ErrConflict, bookingID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Wallet credited",
		zap.Int64("teacher_id", teacherID),
		zap.Int64("booking_id", bookingID),
		zap.String("gross", grossAmount.StringFixed(2)),
		zap.String("fee", fee.StringFixed(2)),
		zap.String("earning", earning.StringFixed(2)),
	)

	return txn, nil
}

// debitWallet резервирует amount под выплату: balance -> pending_balance и запись DEBIT.
// Публичного списания нет, вызывается только из CreatePayoutRequest.
func (s *WalletService) debitWallet(ctx context.Context, wallet *model.TeacherWallet, amount decimal.Decimal, description string, payoutID int64) (*model.WalletTransaction, error) {
	reserved, err := s.wallets.Reserve(ctx, wallet.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("reserve funds: %w", err)
	}
	if reserved == nil {
		return nil, fmt.Errorf("%w: insufficient balance", ErrBadRequest)
	}

	txn := &model.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        model.TransactionTypeDebit,
		Amount:      amount,
		Description: description,
		PayoutID:    &payoutID,
	}
	if err := s.wallets.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// CreatePayoutRequest создаёт заявку на вывод и сразу резервирует сумму
func (s *WalletService) CreatePayoutRequest(ctx context.Context, teacherID int64, amount decimal.Decimal) (*model.PayoutRequest, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}
	amount = amount.Round(2)

	teacher, err := s.getTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	var payout *model.PayoutRequest
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.wallets.GetOrCreate(ctx, teacherID); err != nil {
			return fmt.Errorf("get wallet: %w", err)
		}
		// Блокируем кошелёк до конца транзакции
		wallet, err := s.wallets.GetForUpdate(ctx, teacherID)
		if err != nil {
			return err
		}

		pending, err := s.payouts.HasPending(ctx, teacherID)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: teacher already has a pending payout", ErrBadRequest)
		}
		if amount.GreaterThan(wallet.Balance) {
			return fmt.Errorf("%w: insufficient balance", ErrBadRequest)
		}

		payout = &model.PayoutRequest{
			TeacherID: teacherID,
			WalletID:  wallet.ID,
			Amount:    amount,
			Status:    model.PayoutStatusPending,
		}
		if err := s.payouts.Create(ctx, payout); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: teacher already has a pending payout", ErrBadRequest)
			}
			return err
		}

		_, err = s.debitWallet(ctx, wallet, amount, fmt.Sprintf("Резерв под выплату #%d", payout.ID), payout.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout requested",
		zap.Int64("payout_id", payout.ID),
		zap.Int64("teacher_id", teacherID),
		zap.String("amount", amount.StringFixed(2)),
	)
	deliver(ctx, s.notifier, s.logger, teacher.UserID, payoutNotification(payout))

	return payout, nil
}

// ApprovePayout одобряет заявку. Деньги не двигаются.
func (s *WalletService) ApprovePayout(ctx context.Context, payoutID, adminID int64) (*model.PayoutRequest, error) {
	payout, err := s.payouts.Approve(ctx, payoutID, adminID, s.now())
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, s.transitionError(ctx, payoutID, model.PayoutStatusPending)
	}

	s.logger.Info("Payout approved", zap.Int64("payout_id", payoutID), zap.Int64("admin_id", adminID))
	s.notifyTeacher(ctx, payout)

	return payout, nil
}

// RejectPayout отклоняет заявку и возвращает резерв на баланс
func (s *WalletService) RejectPayout(ctx context.Context, payoutID, adminID int64, reason string) (*model.PayoutRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrBadRequest)
	}

	var payout *model.PayoutRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payout, err = s.payouts.Reject(ctx, payoutID, adminID, reason, s.now())
		if err != nil {
			return err
		}
		if payout == nil {
			return s.transitionError(ctx, payoutID, model.PayoutStatusPending)
		}

		released, err := s.wallets.Release(ctx, payout.WalletID, payout.Amount)
		if err != nil {
			return fmt.Errorf("release funds: %w", err)
		}
		if released == nil {
			return fmt.Errorf("release funds: wallet %d pending balance is below %s", payout.WalletID, payout.Amount)
		}

		return s.wallets.AppendTransaction(ctx, &model.WalletTransaction{
			WalletID:    payout.WalletID,
			Type:        model.TransactionTypeCredit,
			Amount:      payout.Amount,
			Description: fmt.Sprintf("Возврат по отклонённой выплате #%d", payout.ID),
			PayoutID:    &payout.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout rejected",
		zap.Int64("payout_id", payoutID),
		zap.Int64("admin_id", adminID),
		zap.String("reason", reason),
	)
	s.notifyTeacher(ctx, payout)

	return payout, nil
}

// CompletePayout отмечает одобренную выплату отправленной и списывает резерв
func (s *WalletService) CompletePayout(ctx context.Context, payoutID int64) (*model.PayoutRequest, error) {
	var payout *model.PayoutRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payout, err = s.payouts.Complete(ctx, payoutID, s.now())
		if err != nil {
			return err
		}
		if payout == nil {
			return s.transitionError(ctx, payoutID, model.PayoutStatusApproved)
		}

		settled, err := s.wallets.Settle(ctx, payout.WalletID, payout.Amount)
		if err != nil {
			return fmt.Errorf("settle funds: %w", err)
		}
		if settled == nil {
			return fmt.Errorf("settle funds: wallet %d pending balance is below %s", payout.WalletID, payout.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payout completed", zap.Int64("payout_id", payoutID))
	s.notifyTeacher(ctx, payout)

	return payout, nil
}

// GetWallet кошелёк учителя; пустой создаётся при первом обращении
func (s *WalletService) GetWallet(ctx context.Context, teacherID int64) (*model.TeacherWallet, error) {
	if _, err := s.getTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	wallet, err := s.wallets.GetOrCreate(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

// ListTransactions журнал кошелька постранично
func (s *WalletService) ListTransactions(ctx context.Context, teacherID int64, limit, offset int) ([]*model.WalletTransaction, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrBadRequest)
	}
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	limit = min(limit, maxTransactionsLimit)

	wallet, err := s.wallets.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if wallet == nil {
		return []*model.WalletTransaction{}, nil
	}

	transactions, err := s.wallets.ListTransactions(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// ListPayouts заявки учителя
func (s *WalletService) ListPayouts(ctx context.Context, teacherID int64) ([]*model.PayoutRequest, error) {
	payouts, err := s.payouts.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// ListPayoutsByStatus очередь заявок для администратора
func (s *WalletService) ListPayoutsByStatus(ctx context.Context, status model.PayoutStatus) ([]*model.PayoutRequest, error) {
	switch status {
	case model.PayoutStatusPending, model.PayoutStatusApproved, model.PayoutStatusRejected, model.PayoutStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown payout status %q", ErrBadRequest, status)
	}
	payouts, err := s.payouts.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// RevenueTotals суммарный доход платформы
func (s *WalletService) RevenueTotals(ctx context.Context) (*model.RevenueTotals, error) {
	return s.revenues.Totals(ctx)
}

// ReconcileReport сравнение кешированных полей кошелька с журналом
type ReconcileReport struct {
	Wallet         *model.TeacherWallet
	Balance        decimal.Decimal // по журналу
	PendingBalance decimal.Decimal // по открытым заявкам
	TotalEarned    decimal.Decimal // по журналу
	Mismatches     []string
}

// Consistent кеш совпадает с журналом
func (r *ReconcileReport) Consistent() bool {
	return len(r.Mismatches) == 0
}

// Reconcile пересчитывает кошелёк по журналу и открытым выплатам
func (s *WalletService) Reconcile(ctx context.Context, teacherID int64) (*ReconcileReport, error) {
	wallet, err := s.wallets.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if wallet == nil {
		return nil, fmt.Errorf("%w: wallet not found", ErrNotFound)
	}

	totals, err := s.wallets.LedgerTotals(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}
	open, err := s.payouts.OpenAmount(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		Wallet:         wallet,
		Balance:        totals.Credits.Sub(totals.Debits),
		PendingBalance: open,
		TotalEarned:    totals.EarnedCredits,
	}
	check := func(field string, cached, derived decimal.Decimal) {
		if !cached.Equal(derived) {
			report.Mismatches = append(report.Mismatches,
				fmt.Sprintf("%s: cached %s, ledger %s", field, cached.StringFixed(2), derived.StringFixed(2)))
		}
	}
	check("balance", wallet.Balance, report.Balance)
	check("pending_balance", wallet.PendingBalance, report.PendingBalance)
	check("total_earned", wallet.TotalEarned, report.TotalEarned)

	if !report.Consistent() {
		s.logger.Warn("Wallet is out of sync with ledger",
			zap.Int64("teacher_id", teacherID),
			zap.Strings("mismatches", report.Mismatches),
		)
	}

	return report, nil
}

func (s *WalletService) getTeacher(ctx context.Context, teacherID int64) (*model.Teacher, error) {
	teacher, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, fmt.Errorf("%w: teacher not found", ErrNotFound)
	}
	return teacher, nil
}

// transitionError объясняет почему условный переход заявки не сработал
func (s *WalletService) transitionError(ctx context.Context, payoutID int64, expected model.PayoutStatus) error {
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if payout == nil {
		return fmt.Errorf("%w: payout not found", ErrNotFound)
	}
	return fmt.Errorf("%w: payout is %s, not %s", ErrBadRequest, payout.Status, expected)
}

func (s *WalletService) notifyTeacher(ctx context.Context, payout *model.PayoutRequest) {
	teacher, err := s.teachers.GetByID(ctx, payout.TeacherID)
	if err != nil || teacher == nil {
		s.logger.Warn("Failed to resolve payout owner", zap.Int64("payout_id", payout.ID), zap.Error(err))
		return
	}
	deliver(ctx, s.notifier, s.logger, teacher.UserID, payoutNotification(payout))
}
