package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UserLookup interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type TeacherLookup interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Teacher, error)
}

type BookingService interface {
	Create(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	Confirm(ctx context.Context, bookingID, actingUserID int64) (*model.Booking, error)
	Reject(ctx context.Context, bookingID, actingUserID int64) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID, actingUserID int64, role model.Role) (*model.Booking, error)
	GetByID(ctx context.Context, bookingID int64) (*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64, status *model.BookingStatus) ([]*model.Booking, error)
	ListByTeacher(ctx context.Context, teacherID int64, status *model.BookingStatus) ([]*model.Booking, error)
	StartSession(ctx context.Context, bookingID, actingUserID int64) (*model.Session, error)
	EndSession(ctx context.Context, bookingID, actingUserID int64) (*model.Session, error)
}

type PaymentService interface {
	Initiate(ctx context.Context, bookingID, studentID int64) (*model.Payment, error)
}

type RecurringService interface {
	Generate(ctx context.Context, in service.GenerateInput) (*service.GenerateResult, error)
	ListSlots(ctx context.Context, teacherID int64) ([]*model.RecurringSchedule, error)
}

type WalletService interface {
	GetWallet(ctx context.Context, teacherID int64) (*model.TeacherWallet, error)
	ListTransactions(ctx context.Context, teacherID int64, limit, offset int) ([]*model.WalletTransaction, error)
	ListPayouts(ctx context.Context, teacherID int64) ([]*model.PayoutRequest, error)
	CreatePayoutRequest(ctx context.Context, teacherID int64, amount decimal.Decimal) (*model.PayoutRequest, error)
	ApprovePayout(ctx context.Context, payoutID, adminID int64) (*model.PayoutRequest, error)
	RejectPayout(ctx context.Context, payoutID, adminID int64, reason string) (*model.PayoutRequest, error)
	CompletePayout(ctx context.Context, payoutID int64) (*model.PayoutRequest, error)
	ListPayoutsByStatus(ctx context.Context, status model.PayoutStatus) ([]*model.PayoutRequest, error)
	RevenueTotals(ctx context.Context) (*model.RevenueTotals, error)
	Reconcile(ctx context.Context, teacherID int64) (*service.ReconcileReport, error)
}

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	users     UserLookup
	teachers  TeacherLookup
	bookings  BookingService
	payments  PaymentService
	recurring RecurringService
	wallet    WalletService
	currency  string
	loc       *time.Location
	logger    *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	users UserLookup,
	teachers TeacherLookup,
	bookings BookingService,
	payments PaymentService,
	recurring RecurringService,
	wallet WalletService,
	currency string,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{
		users:     users,
		teachers:  teachers,
		bookings:  bookings,
		payments:  payments,
		recurring: recurring,
		wallet:    wallet,
		currency:  currency,
		loc:       loc,
		logger:    logger,
	}
}

// CommandFunc выполняет команду от имени пользователя и возвращает текст ответа
type CommandFunc func(ctx context.Context, user *model.User, args []string) (string, error)

// Command команда бота
type Command struct {
	Name        string
	Description string // пустое описание скрывает команду из меню
	Run         CommandFunc
}

// Commands список команд в порядке меню
func (h *Handlers) Commands() []Command {
	return []Command{
		{Name: "start", Description: "🚀 Начать работу", Run: h.HandleStart},
		{Name: "help", Description: "❓ Справка по командам", Run: h.HandleHelp},
		{Name: "mybookings", Description: "📅 Мои занятия", Run: h.HandleMyBookings},
		{Name: "booking", Run: h.HandleBooking},
		{Name: "book", Run: h.HandleBook},
		{Name: "slots", Run: h.HandleSlots},
		{Name: "subscribe", Run: h.HandleSubscribe},
		{Name: "pay", Run: h.HandlePay},
		{Name: "cancel", Run: h.HandleCancel},
		{Name: "confirm", Run: h.HandleConfirm},
		{Name: "reject", Run: h.HandleReject},
		{Name: "startsession", Run: h.HandleStartSession},
		{Name: "endsession", Run: h.HandleEndSession},
		{Name: "wallet", Description: "💼 Кошелёк (учитель)", Run: h.HandleWallet},
		{Name: "transactions", Run: h.HandleTransactions},
		{Name: "payout", Run: h.HandlePayout},
		{Name: "payouts", Run: h.HandlePayouts},
		{Name: "approvepayout", Run: h.HandleApprovePayout},
		{Name: "rejectpayout", Run: h.HandleRejectPayout},
		{Name: "completepayout", Run: h.HandleCompletePayout},
		{Name: "revenue", Run: h.HandleRevenue},
		{Name: "reconcile", Run: h.HandleReconcile},
	}
}
