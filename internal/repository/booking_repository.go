package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `
	b.id, b.student_id, b.teacher_id, b.schedule_id, b.date, b.start_time, b.starts_at, b.duration,
	b.price, b.discount, b.total_price, b.status, b.notes, b.canceled_at, b.canceled_by,
	b.created_at, b.updated_at`

// inactiveBookingStatuses не занимают слот и не участвуют в дедупликации
var inactiveBookingStatuses = []string{
	string(model.BookingStatusCanceled),
	string(model.BookingStatusRejected),
}

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(repo *base.Repository) *BookingRepository {
	return &BookingRepository{Repository: repo}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TeacherID,
		&booking.ScheduleID,
		&booking.Date,
		&booking.StartTime,
		&booking.StartsAt,
		&booking.Duration,
		&booking.Price,
		&booking.Discount,
		&booking.TotalPrice,
		&booking.Status,
		&booking.Notes,
		&booking.CanceledAt,
		&booking.CanceledBy,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

// getOne выполняет запрос одной строки, nil если строки нет
func (r *BookingRepository) getOne(ctx context.Context, op, query string, args ...any) (*model.Booking, error) {
	booking, err := scanBooking(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return booking, nil
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, teacher_id, schedule_id, date, start_time, starts_at, duration,
			price, discount, total_price, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.TeacherID,
		booking.ScheduleID,
		booking.Date,
		booking.StartTime,
		booking.StartsAt,
		booking.Duration,
		booking.Price,
		booking.Discount,
		booking.TotalPrice,
		string(booking.Status),
		booking.Notes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create booking: %w", ErrDuplicate)
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings b WHERE b.id = $1`
	return r.getOne(ctx, "get booking by id", query, id)
}

// ListByStudent получает бронирования студента, новые даты первыми
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64, status *model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings b
		WHERE b.student_id = $1 AND ($2::text IS NULL OR b.status = $2)
		ORDER BY b.date DESC, b.start_time DESC
	`

	rows, err := r.Query(ctx, query, studentID, statusFilter(status))
	if err != nil {
		return nil, fmt.Errorf("get bookings by student: %w", err)
	}
	return collectBookings(rows)
}

// ListByTeacher получает бронирования учителя, новые даты первыми
func (r *BookingRepository) ListByTeacher(ctx context.Context, teacherID int64, status *model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings b
		WHERE b.teacher_id = $1 AND ($2::text IS NULL OR b.status = $2)
		ORDER BY b.date DESC, b.start_time DESC
	`

	rows, err := r.Query(ctx, query, teacherID, statusFilter(status))
	if err != nil {
		return nil, fmt.Errorf("get bookings by teacher: %w", err)
	}
	return collectBookings(rows)
}

// UpdateStatus переводит бронирование в статус to, только если текущий статус входит в from.
// Возвращает nil, если условие не выполнилось.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) (*model.Booking, error) {
	query := `
		UPDATE bookings b
		SET status = $3, updated_at = now()
		WHERE b.id = $1 AND b.status = ANY($2)
		RETURNING` + bookingColumns

	return r.getOne(ctx, "update booking status", query, id, statusStrings(from), string(to))
}

// Cancel отменяет бронирование, если текущий статус входит в from
func (r *BookingRepository) Cancel(ctx context.Context, id int64, from []model.BookingStatus, canceledBy string, at time.Time) (*model.Booking, error) {
	query := `
		UPDATE bookings b
		SET status = $3, canceled_at = $4, canceled_by = $5, updated_at = now()
		WHERE b.id = $1 AND b.status = ANY($2)
		RETURNING` + bookingColumns

	return r.getOne(ctx, "cancel booking", query,
		id, statusStrings(from), string(model.BookingStatusCanceled), at, canceledBy)
}

// CancelNoShow отменяет подтверждённое бронирование, по которому так и не создано занятие
func (r *BookingRepository) CancelNoShow(ctx context.Context, id int64, at time.Time) (*model.Booking, error) {
	query := `
		UPDATE bookings b
		SET status = $2, canceled_at = $3, canceled_by = $4, updated_at = now()
		WHERE b.id = $1 AND b.status = $5
			AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.booking_id = b.id)
		RETURNING` + bookingColumns

	return r.getOne(ctx, "cancel no-show booking", query,
		id, string(model.BookingStatusCanceled), at, model.CanceledBySystem, string(model.BookingStatusConfirmed))
}

// HasActiveAt проверяет, есть ли у студента активная запись к учителю на это время
func (r *BookingRepository) HasActiveAt(ctx context.Context, studentID, teacherID int64, date time.Time, startTime string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE student_id = $1 AND teacher_id = $2 AND date = $3 AND start_time = $4
				AND status <> ALL($5)
		)
	`

	var exists bool
	err := r.QueryRow(ctx, query, studentID, teacherID, date, startTime, inactiveBookingStatuses).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active booking: %w", err)
	}
	return exists, nil
}

// ActiveDates возвращает даты активных записей студента к учителю на startTime в диапазоне [from, to]
func (r *BookingRepository) ActiveDates(ctx context.Context, studentID, teacherID int64, startTime string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT date
		FROM bookings
		WHERE student_id = $1 AND teacher_id = $2 AND start_time = $3
			AND date BETWEEN $4 AND $5
			AND status <> ALL($6)
	`

	rows, err := r.Query(ctx, query, studentID, teacherID, startTime, from, to, inactiveBookingStatuses)
	if err != nil {
		return nil, fmt.Errorf("get active booking dates: %w", err)
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, fmt.Errorf("scan booking date: %w", err)
	}
	return dates, nil
}

// ListConfirmedStartingBetween подтверждённые бронирования, начинающиеся в (from, to].
// Левая граница открыта: занятие ровно на тике уже получило напоминание на прошлом тике.
func (r *BookingRepository) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings b
		WHERE b.status = $1 AND b.starts_at > $2 AND b.starts_at <= $3
		ORDER BY b.starts_at
	`

	rows, err := r.Query(ctx, query, string(model.BookingStatusConfirmed), from, to)
	if err != nil {
		return nil, fmt.Errorf("get upcoming bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListNoShowCandidates подтверждённые бронирования без занятия, начавшиеся не позже cutoff
func (r *BookingRepository) ListNoShowCandidates(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings b
		WHERE b.status = $1 AND b.starts_at <= $2
			AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.booking_id = b.id)
		ORDER BY b.starts_at
	`

	rows, err := r.Query(ctx, query, string(model.BookingStatusConfirmed), cutoff)
	if err != nil {
		return nil, fmt.Errorf("get no-show candidates: %w", err)
	}
	return collectBookings(rows)
}

// ListAutoSessionCandidates оплаченные подтверждённые бронирования без занятия, начавшиеся в [from, to]
func (r *BookingRepository) ListAutoSessionCandidates(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings b
		JOIN payments p ON p.booking_id = b.id AND p.status = $2
		WHERE b.status = $1 AND b.starts_at BETWEEN $3 AND $4
			AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.booking_id = b.id)
		ORDER BY b.starts_at
	`

	rows, err := r.Query(ctx, query,
		string(model.BookingStatusConfirmed), string(model.PaymentStatusCompleted), from, to)
	if err != nil {
		return nil, fmt.Errorf("get auto-session candidates: %w", err)
	}
	return collectBookings(rows)
}

// ListFinishedWithOpenSession подтверждённые бронирования с незакрытым занятием, время которых истекло
func (r *BookingRepository) ListFinishedWithOpenSession(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings b
		JOIN sessions s ON s.booking_id = b.id AND s.ended_at IS NULL
		WHERE b.status = $1 AND b.starts_at + b.duration * interval '1 hour' <= $2
		ORDER BY b.starts_at
	`

	rows, err := r.Query(ctx, query, string(model.BookingStatusConfirmed), now)
	if err != nil {
		return nil, fmt.Errorf("get finished bookings: %w", err)
	}
	return collectBookings(rows)
}

func statusFilter(status *model.BookingStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}
