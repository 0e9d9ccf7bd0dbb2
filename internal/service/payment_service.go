package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository"
	"go.uber.org/zap"
)

// PaymentService создаёт оплаты и обрабатывает результаты от платёжного шлюза.
// Кошелёк доступен ему только через WalletCreditor.
type PaymentService struct {
	tx       Transactor
	bookings BookingStore
	payments PaymentStore
	teachers TeacherStore
	wallet   WalletCreditor
	notifier Notifier
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

func NewPaymentService(
	tx Transactor,
	bookings BookingStore,
	payments PaymentStore,
	teachers TeacherStore,
	wallet WalletCreditor,
	notifier Notifier,
	currency string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		tx:       tx,
		bookings: bookings,
		payments: payments,
		teachers: teachers,
		wallet:   wallet,
		notifier: notifier,
		currency: currency,
		now:      time.Now,
		logger:   logger,
	}
}

// Initiate создаёт оплату подтверждённого бронирования. Повторный вызов возвращает ту же оплату.
func (s *PaymentService) Initiate(ctx context.Context, bookingID, studentID int64) (*model.Payment, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	if booking.StudentID != studentID {
		return nil, fmt.Errorf("%w: booking belongs to another student", ErrForbidden)
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: booking is %s, not confirmed", ErrBadRequest, booking.Status)
	}

	existing, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	payment := &model.Payment{
		BookingID: bookingID,
		Amount:    booking.TotalPrice,
		Currency:  s.currency,
		Status:    model.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Параллельный Initiate успел раньше
			return s.payments.GetByBookingID(ctx, bookingID)
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info("Payment initiated",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("booking_id", bookingID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)

	return payment, nil
}

// GetByBooking оплата бронирования
func (s *PaymentService) GetByBooking(ctx context.Context, bookingID int64) (*model.Payment, error) {
	payment, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment not found", ErrNotFound)
	}
	return payment, nil
}

// HandleEvent применяет результат оплаты. Повторная доставка того же события ничего не меняет.
// Несопоставимое событие возвращает ErrUnresolvableEvent.
func (s *PaymentService) HandleEvent(ctx context.Context, event model.PaymentEvent) error {
	if event.Outcome != model.PaymentOutcomeSucceeded && event.Outcome != model.PaymentOutcomeFailed {
		return fmt.Errorf("%w: unknown outcome %q", ErrUnresolvableEvent, event.Outcome)
	}

	booking, err := s.bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("%w: booking %d not found", ErrUnresolvableEvent, event.BookingID)
	}
	payment, err := s.payments.GetByBookingID(ctx, event.BookingID)
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return fmt.Errorf("%w: no payment for booking %d", ErrUnresolvableEvent, event.BookingID)
	}

	if event.Outcome == model.PaymentOutcomeFailed {
		return s.markFailed(ctx, event)
	}
	return s.markCompleted(ctx, booking, event)
}

func (s *PaymentService) markCompleted(ctx context.Context, booking *model.Booking, event model.PaymentEvent) error {
	var (
		paid   *model.Payment
		credit *model.WalletTransaction
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		paid, err = s.payments.MarkCompleted(ctx, booking.ID, event.ExternalPaymentID, s.now())
		if err != nil {
			return fmt.Errorf("mark payment completed: %w", err)
		}
		if paid == nil {
			return nil
		}

		if !event.Amount.IsZero() && !event.Amount.Equal(paid.Amount) {
			s.logger.Warn("Payment event amount differs from payment",
				zap.Int64("booking_id", booking.ID),
				zap.String("event_amount", event.Amount.StringFixed(2)),
				zap.String("payment_amount", paid.Amount.StringFixed(2)),
			)
		}
		if !paid.Amount.IsPositive() {
			return nil
		}

		credit, err = s.wallet.CreditWallet(ctx, booking.TeacherID, paid.Amount, booking.ID, paid.ID)
		return err
	})
	if err != nil {
		return err
	}

	if paid == nil {
		s.logger.Info("Payment event already applied",
			zap.Int64("booking_id", booking.ID),
			zap.String("external_payment_id", event.ExternalPaymentID),
		)
		return nil
	}

	s.logger.Info("Payment completed",
		zap.Int64("payment_id", paid.ID),
		zap.Int64("booking_id", booking.ID),
		zap.String("external_payment_id", paid.ExternalPaymentID),
	)

	if credit != nil {
		teacher, err := s.teachers.GetByID(ctx, booking.TeacherID)
		if err != nil || teacher == nil {
			s.logger.Warn("Failed to resolve booking teacher", zap.Int64("booking_id", booking.ID), zap.Error(err))
			return nil
		}
		deliver(ctx, s.notifier, s.logger, teacher.UserID, paymentCompletedNotification(booking, credit.Amount.StringFixed(2)))
	}

	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, event model.PaymentEvent) error {
	failed, err := s.payments.MarkFailed(ctx, event.BookingID, event.ExternalPaymentID, s.now())
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if failed == nil {
		s.logger.Info("Payment failure ignored, payment is not pending", zap.Int64("booking_id", event.BookingID))
		return nil
	}

	s.logger.Info("Payment failed",
		zap.Int64("payment_id", failed.ID),
		zap.Int64("booking_id", event.BookingID),
	)
	return nil
}
