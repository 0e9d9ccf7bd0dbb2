package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BookingService struct {
	tx       Transactor
	bookings BookingStore
	sessions SessionStore
	payments PaymentStore
	teachers TeacherStore
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func NewBookingService(
	tx Transactor,
	bookings BookingStore,
	sessions SessionStore,
	payments PaymentStore,
	teachers TeacherStore,
	notifier Notifier,
	loc *time.Location,
	logger *zap.Logger,
) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		tx:       tx,
		bookings: bookings,
		sessions: sessions,
		payments: payments,
		teachers: teachers,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// CreateBookingInput заявка студента на одно занятие
type CreateBookingInput struct {
	StudentID int64
	TeacherID int64
	Date      time.Time
	StartTime string
	Duration  decimal.Decimal
	Discount  decimal.Decimal
	Notes     string
}

// Create создаёт заявку на занятие в статусе pending
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if !in.Duration.IsPositive() {
		return nil, fmt.Errorf("%w: duration must be positive", ErrBadRequest)
	}
	if in.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrBadRequest)
	}

	startTime, err := model.NormalizeStartTime(in.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	date := time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, s.loc)
	startsAt, err := model.StartsAt(date, startTime, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if !startsAt.After(s.now()) {
		return nil, fmt.Errorf("%w: booking time must be in the future", ErrBadRequest)
	}

	teacher, err := s.teachers.GetByID(ctx, in.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, fmt.Errorf("%w: teacher not found", ErrNotFound)
	}
	if !teacher.IsApproved {
		return nil, fmt.Errorf("%w: teacher is not approved", ErrBadRequest)
	}

	price := teacher.HourlyRate.Mul(in.Duration).Round(2)
	if in.Discount.GreaterThan(price) {
		return nil, fmt.Errorf("%w: discount exceeds price", ErrBadRequest)
	}

	// Повторная заявка на тот же слот
	exists, err := s.bookings.HasActiveAt(ctx, in.StudentID, in.TeacherID, date, startTime)
	if err != nil {
		return nil, fmt.Errorf("check existing booking: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: booking for this time already exists", ErrConflict)
	}

	booking := &model.Booking{
		StudentID:  in.StudentID,
		TeacherID:  teacher.ID,
		Date:       date,
		StartTime:  startTime,
		StartsAt:   startsAt,
		Duration:   in.Duration,
		Price:      price,
		Discount:   in.Discount,
		TotalPrice: price.Sub(in.Discount),
		Status:     model.BookingStatusPending,
		Notes:      in.Notes,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: booking for this time already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", booking.StudentID),
		zap.Int64("teacher_id", booking.TeacherID),
		zap.Time("starts_at", booking.StartsAt),
	)

	deliver(ctx, s.notifier, s.logger, teacher.UserID, requestedNotification(booking))

	return booking, nil
}

// Confirm подтверждает заявку учителем
func (s *BookingService) Confirm(ctx context.Context, bookingID, actingUserID int64) (*model.Booking, error) {
	booking, err := s.decide(ctx, bookingID, actingUserID, model.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking confirmed", zap.Int64("booking_id", booking.ID))
	deliver(ctx, s.notifier, s.logger, booking.StudentID, confirmedNotification(booking))

	return booking, nil
}

// Reject отклоняет заявку учителем
func (s *BookingService) Reject(ctx context.Context, bookingID, actingUserID int64) (*model.Booking, error) {
	booking, err := s.decide(ctx, bookingID, actingUserID, model.BookingStatusRejected)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking rejected", zap.Int64("booking_id", booking.ID))
	deliver(ctx, s.notifier, s.logger, booking.StudentID, rejectedNotification(booking))

	return booking, nil
}

// decide переводит pending-заявку в to от имени учителя-владельца
func (s *BookingService) decide(ctx context.Context, bookingID, actingUserID int64, to model.BookingStatus) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	teacher, err := s.teachers.GetByID(ctx, booking.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil || teacher.UserID != actingUserID {
		return nil, fmt.Errorf("%w: booking belongs to another teacher", ErrForbidden)
	}

	if booking.Status != model.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s, not pending", ErrBadRequest, booking.Status)
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, []model.BookingStatus{model.BookingStatusPending}, to)
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: booking is no longer pending", ErrBadRequest)
	}

	return updated, nil
}

// Cancel отменяет заявку или подтверждённое занятие.
// Отменить может студент, учитель-владелец или администратор.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actingUserID int64, role model.Role) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	teacher, err := s.teachers.GetByID(ctx, booking.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}

	isStudent := booking.StudentID == actingUserID
	isTeacher := teacher != nil && teacher.UserID == actingUserID
	isAdmin := role == model.RoleAdmin
	if !isStudent && !isTeacher && !isAdmin {
		return nil, fmt.Errorf("%w: not allowed to cancel this booking", ErrForbidden)
	}

	if booking.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: booking is already %s", ErrBadRequest, booking.Status)
	}

	canceled, err := s.bookings.Cancel(ctx, bookingID,
		[]model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed},
		strconv.FormatInt(actingUserID, 10),
		s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if canceled == nil {
		return nil, fmt.Errorf("%w: booking can no longer be canceled", ErrBadRequest)
	}

	s.logger.Info("Booking canceled",
		zap.Int64("booking_id", canceled.ID),
		zap.Int64("canceled_by", actingUserID),
		zap.String("role", string(role)),
	)

	n := canceledNotification(canceled)
	switch {
	case isStudent:
		if teacher != nil {
			deliver(ctx, s.notifier, s.logger, teacher.UserID, n)
		}
	case isTeacher:
		deliver(ctx, s.notifier, s.logger, canceled.StudentID, n)
	default:
		deliver(ctx, s.notifier, s.logger, canceled.StudentID, n)
		if teacher != nil {
			deliver(ctx, s.notifier, s.logger, teacher.UserID, n)
		}
	}

	return canceled, nil
}

// GetByID возвращает бронирование с занятием и оплатой
func (s *BookingService) GetByID(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	payment, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	booking.Session = session
	booking.Payment = payment

	return booking, nil
}

// ListByStudent бронирования студента, новые сначала
func (s *BookingService) ListByStudent(ctx context.Context, studentID int64, status *model.BookingStatus) ([]*model.Booking, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, *status)
	}
	bookings, err := s.bookings.ListByStudent(ctx, studentID, status)
	if err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}
	return bookings, nil
}

// ListByTeacher бронирования учителя, новые сначала
func (s *BookingService) ListByTeacher(ctx context.Context, teacherID int64, status *model.BookingStatus) ([]*model.Booking, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, *status)
	}
	bookings, err := s.bookings.ListByTeacher(ctx, teacherID, status)
	if err != nil {
		return nil, fmt.Errorf("list teacher bookings: %w", err)
	}
	return bookings, nil
}

// StartSession открывает занятие по оплаченному бронированию. Повторный вызов возвращает то же занятие.
func (s *BookingService) StartSession(ctx context.Context, bookingID, actingUserID int64) (*model.Session, error) {
	booking, teacher, err := s.participantBooking(ctx, bookingID, actingUserID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: booking is %s, not confirmed", ErrBadRequest, booking.Status)
	}

	payment, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil || payment.Status != model.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: booking is not paid", ErrBadRequest)
	}

	session := &model.Session{
		BookingID: bookingID,
		RoomID:    uuid.NewString(),
		StartedAt: s.now(),
	}
	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !created {
		existing, err := s.sessions.GetByBookingID(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		return existing, nil
	}

	s.logger.Info("Session started",
		zap.Int64("booking_id", bookingID),
		zap.Int64("session_id", session.ID),
		zap.String("room_id", session.RoomID),
	)
	deliver(ctx, s.notifier, s.logger, otherParty(booking, teacher, actingUserID), sessionStartedNotification(booking, session))

	return session, nil
}

// EndSession завершает занятие и переводит бронирование в completed
func (s *BookingService) EndSession(ctx context.Context, bookingID, actingUserID int64) (*model.Session, error) {
	booking, teacher, err := s.participantBooking(ctx, bookingID, actingUserID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: booking is %s, not confirmed", ErrBadRequest, booking.Status)
	}

	session, completed, err := finishSession(ctx, s.tx, s.bookings, s.sessions, bookingID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session ended",
		zap.Int64("booking_id", bookingID),
		zap.Int64("session_id", session.ID),
	)
	deliver(ctx, s.notifier, s.logger, otherParty(completed, teacher, actingUserID), sessionEndedNotification(completed, session))

	return session, nil
}

// finishSession закрывает занятие и завершает бронирование в одной транзакции
func finishSession(ctx context.Context, tx Transactor, bookings BookingStore, sessions SessionStore, bookingID int64, at time.Time) (*model.Session, *model.Booking, error) {
	var (
		session *model.Session
		booking *model.Booking
	)
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = sessions.End(ctx, bookingID, at)
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		if session == nil {
			existing, err := sessions.GetByBookingID(ctx, bookingID)
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			if existing == nil {
				return fmt.Errorf("%w: session has not started", ErrBadRequest)
			}
			return fmt.Errorf("%w: session already ended", ErrBadRequest)
		}

		booking, err = bookings.UpdateStatus(ctx, bookingID,
			[]model.BookingStatus{model.BookingStatusConfirmed}, model.BookingStatusCompleted)
		if err != nil {
			return fmt.Errorf("complete booking: %w", err)
		}
		if booking == nil {
			return fmt.Errorf("%w: booking is no longer confirmed", ErrBadRequest)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return session, booking, nil
}

func (s *BookingService) getBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	return booking, nil
}

// participantBooking загружает бронирование и проверяет что актор его участник
func (s *BookingService) participantBooking(ctx context.Context, bookingID, actingUserID int64) (*model.Booking, *model.Teacher, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	teacher, err := s.teachers.GetByID(ctx, booking.TeacherID)
	if err != nil {
		return nil, nil, fmt.Errorf("get teacher: %w", err)
	}
	if booking.StudentID != actingUserID && (teacher == nil || teacher.UserID != actingUserID) {
		return nil, nil, fmt.Errorf("%w: not a participant of this booking", ErrForbidden)
	}
	return booking, teacher, nil
}

// otherParty user id второго участника бронирования
func otherParty(b *model.Booking, teacher *model.Teacher, actingUserID int64) int64 {
	if b.StudentID == actingUserID && teacher != nil {
		return teacher.UserID
	}
	return b.StudentID
}
