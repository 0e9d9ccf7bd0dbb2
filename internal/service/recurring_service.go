package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecurringService раскладывает подписку студента в серию еженедельных бронирований
type RecurringService struct {
	tx        Transactor
	bookings  BookingStore
	schedules ScheduleStore
	teachers  TeacherStore
	notifier  Notifier
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewRecurringService(
	tx Transactor,
	bookings BookingStore,
	schedules ScheduleStore,
	teachers TeacherStore,
	notifier Notifier,
	loc *time.Location,
	logger *zap.Logger,
) *RecurringService {
	if loc == nil {
		loc = time.UTC
	}
	return &RecurringService{
		tx:        tx,
		bookings:  bookings,
		schedules: schedules,
		teachers:  teachers,
		notifier:  notifier,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// GenerateInput подписка на серию занятий.
// Если ScheduleID задан, время и длительность берутся из слота, иначе из StartTime и Duration.
type GenerateInput struct {
	StudentID  int64
	TeacherID  int64
	ScheduleID *int64
	StartTime  string
	Duration   decimal.Decimal
	Plan       model.PaymentPlan
	EndDate    *time.Time
	Discount   decimal.Decimal
	Notes      string
}

type GenerateResult struct {
	Bookings    []*model.Booking `json:"bookings"`
	Created     int              `json:"created"`
	Skipped     int              `json:"skipped"` // уже были забронированы
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Message     string           `json:"message,omitempty"`
}

// Generate создаёт недостающие занятия серии одной транзакцией.
// Повторный вызов с теми же параметрами ничего не создаёт.
func (s *RecurringService) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	occurrences, ok := in.Plan.Occurrences()
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment plan %q", ErrBadRequest, in.Plan)
	}
	if in.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrBadRequest)
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

	startTime, duration := in.StartTime, in.Duration
	var slot *model.RecurringSchedule
	if in.ScheduleID != nil {
		slot, err = s.schedules.GetByID(ctx, *in.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("get schedule: %w", err)
		}
		if slot == nil {
			return nil, fmt.Errorf("%w: schedule slot not found", ErrNotFound)
		}
		if slot.TeacherID != teacher.ID {
			return nil, fmt.Errorf("%w: schedule slot belongs to another teacher", ErrBadRequest)
		}
		if !slot.IsActive {
			return nil, fmt.Errorf("%w: schedule slot is not active", ErrBadRequest)
		}
		startTime, duration = slot.StartTime(), slot.DurationHours()
	}
	startTime, err = model.NormalizeStartTime(startTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if !duration.IsPositive() {
		return nil, fmt.Errorf("%w: duration must be positive", ErrBadRequest)
	}

	// Первое занятие: ближайший день недели слота начиная с завтра
	today := model.CalendarDate(s.now().In(s.loc))
	first := today.AddDate(0, 0, 1)
	if slot != nil {
		for int(first.Weekday()) != slot.Weekday {
			first = first.AddDate(0, 0, 1)
		}
	}

	end := in.Plan.DefaultEndDate(first)
	if in.EndDate != nil {
		end = time.Date(in.EndDate.Year(), in.EndDate.Month(), in.EndDate.Day(), 0, 0, 0, 0, s.loc)
		if end.Before(first) {
			return nil, fmt.Errorf("%w: end date is before the first session", ErrBadRequest)
		}
	}

	dates := make([]time.Time, 0, occurrences)
	for d := first; len(dates) < occurrences && !d.After(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}

	price := teacher.HourlyRate.Mul(duration).Round(2)
	if in.Discount.GreaterThan(price) {
		return nil, fmt.Errorf("%w: discount exceeds price", ErrBadRequest)
	}
	total := price.Sub(in.Discount)

	existing, err := s.bookings.ActiveDates(ctx, in.StudentID, teacher.ID, startTime, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, fmt.Errorf("get existing bookings: %w", err)
	}
	booked := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		booked[d.Format(time.DateOnly)] = struct{}{}
	}

	toCreate := make([]*model.Booking, 0, len(dates))
	for _, date := range dates {
		if _, ok := booked[date.Format(time.DateOnly)]; ok {
			continue
		}
		startsAt, err := model.StartsAt(date, startTime, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
		}
		toCreate = append(toCreate, &model.Booking{
			StudentID:  in.StudentID,
			TeacherID:  teacher.ID,
			ScheduleID: in.ScheduleID,
			Date:       date,
			StartTime:  startTime,
			StartsAt:   startsAt,
			Duration:   duration,
			Price:      price,
			Discount:   in.Discount,
			TotalPrice: total,
			Status:     model.BookingStatusPending,
			Notes:      in.Notes,
		})
	}

	result := &GenerateResult{
		Bookings:    toCreate,
		Created:     len(toCreate),
		Skipped:     len(dates) - len(toCreate),
		TotalAmount: total.Mul(decimal.NewFromInt(int64(len(toCreate)))),
	}
	if len(toCreate) == 0 {
		result.Message = "all sessions of this series are already booked"
		return result, nil
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, booking := range toCreate {
			if err := s.bookings.Create(ctx, booking); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("%w: session on %s is already booked", ErrConflict, booking.Date.Format(time.DateOnly))
				}
				return fmt.Errorf("create booking: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recurring bookings created",
		zap.Int64("student_id", in.StudentID),
		zap.Int64("teacher_id", teacher.ID),
		zap.String("plan", string(in.Plan)),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	deliver(ctx, s.notifier, s.logger, teacher.UserID, recurringRequestedNotification(toCreate[0], len(toCreate)))

	return result, nil
}

// ListSlots активные слоты доступности учителя
func (s *RecurringService) ListSlots(ctx context.Context, teacherID int64) ([]*model.RecurringSchedule, error) {
	slots, err := s.schedules.GetActiveByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return slots, nil
}
