package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Интерфейсы хранилищ, которыми пользуются сервисы. Реализации в internal/repository.

// Transactor выполняет fn атомарно. Вложенные вызовы присоединяются к внешней транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TeacherStore interface {
	GetByID(ctx context.Context, id int64) (*model.Teacher, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error)
}

type ScheduleStore interface {
	GetByID(ctx context.Context, id int64) (*model.RecurringSchedule, error)
	GetActiveByTeacherID(ctx context.Context, teacherID int64) ([]*model.RecurringSchedule, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64, status *model.BookingStatus) ([]*model.Booking, error)
	ListByTeacher(ctx context.Context, teacherID int64, status *model.BookingStatus) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) (*model.Booking, error)
	Cancel(ctx context.Context, id int64, from []model.BookingStatus, canceledBy string, at time.Time) (*model.Booking, error)
	CancelNoShow(ctx context.Context, id int64, at time.Time) (*model.Booking, error)
	HasActiveAt(ctx context.Context, studentID, teacherID int64, date time.Time, startTime string) (bool, error)
	ActiveDates(ctx context.Context, studentID, teacherID int64, startTime string, from, to time.Time) ([]time.Time, error)
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	ListNoShowCandidates(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
	ListAutoSessionCandidates(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	ListFinishedWithOpenSession(ctx context.Context, now time.Time) ([]*model.Booking, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) (bool, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*model.Session, error)
	End(ctx context.Context, bookingID int64, at time.Time) (*model.Session, error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByBookingID(ctx context.Context, bookingID int64) (*model.Payment, error)
	MarkCompleted(ctx context.Context, bookingID int64, externalPaymentID string, at time.Time) (*model.Payment, error)
	MarkFailed(ctx context.Context, bookingID int64, externalPaymentID string, at time.Time) (*model.Payment, error)
}

type WalletStore interface {
	GetOrCreate(ctx context.Context, teacherID int64) (*model.TeacherWallet, error)
	GetByTeacherID(ctx context.Context, teacherID int64) (*model.TeacherWallet, error)
	GetForUpdate(ctx context.Context, teacherID int64) (*model.TeacherWallet, error)
	Credit(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error)
	Reserve(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error)
	Release(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error)
	Settle(ctx context.Context, walletID int64, amount decimal.Decimal) (*model.TeacherWallet, error)
	AppendTransaction(ctx context.Context, txn *model.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID int64, limit, offset int) ([]*model.WalletTransaction, error)
	LedgerTotals(ctx context.Context, walletID int64) (*model.LedgerTotals, error)
}

type RevenueStore interface {
	Append(ctx context.Context, revenue *model.PlatformRevenue) error
	Totals(ctx context.Context) (*model.RevenueTotals, error)
}

type PayoutStore interface {
	Create(ctx context.Context, payout *model.PayoutRequest) error
	GetByID(ctx context.Context, id int64) (*model.PayoutRequest, error)
	HasPending(ctx context.Context, teacherID int64) (bool, error)
	OpenAmount(ctx context.Context, teacherID int64) (decimal.Decimal, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.PayoutRequest, error)
	ListByStatus(ctx context.Context, status model.PayoutStatus) ([]*model.PayoutRequest, error)
	Approve(ctx context.Context, id, adminID int64, at time.Time) (*model.PayoutRequest, error)
	Reject(ctx context.Context, id, adminID int64, reason string, at time.Time) (*model.PayoutRequest, error)
	Complete(ctx context.Context, id int64, at time.Time) (*model.PayoutRequest, error)
}

// Notifier доставляет уведомление. Ошибка доставки не откатывает изменение, которое её вызвало.
type Notifier interface {
	Notify(ctx context.Context, userID int64, n model.Notification) error
}

// WalletCreditor узкий интерфейс кошелька для обработчика оплат
type WalletCreditor interface {
	CreditWallet(ctx context.Context, teacherID int64, grossAmount decimal.Decimal, bookingID, paymentID int64) (*model.WalletTransaction, error)
}
