package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает подтверждения учителя
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCompleted BookingStatus = "completed" // Занятие состоялось
	BookingStatusCanceled  BookingStatus = "canceled"  // Отменено
	BookingStatusRejected  BookingStatus = "rejected"  // Отклонено учителем
)

// CanceledBySystem пишется в canceled_by при автоматической отмене
const CanceledBySystem = "SYSTEM"

// IsTerminal сообщает, что из статуса больше нет переходов
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCanceled, BookingStatusRejected:
		return true
	}
	return false
}

// Valid проверяет что статус известен
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCanceled, BookingStatusRejected:
		return true
	}
	return false
}

type Booking struct {
	ID          int64           `json:"id"`
	StudentID   int64           `json:"student_id"`
	TeacherID   int64           `json:"teacher_id"` // teachers.id, не users.id
	ScheduleID  *int64          `json:"schedule_id"`
	Date        time.Time       `json:"date"`       // календарный день, 00:00
	StartTime   string          `json:"start_time"` // HH:MM
	StartsAt    time.Time       `json:"starts_at"`  // Date + StartTime в часовом поясе сервиса
	Duration    decimal.Decimal `json:"duration"`   // в часах, допускается дробное
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      BookingStatus   `json:"status"`
	Notes       string          `json:"notes"`
	CanceledAt  *time.Time      `json:"canceled_at"`
	CanceledBy  *string         `json:"canceled_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Не из БД
	Session *Session `json:"session,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}

// EndsAt время окончания занятия
func (b *Booking) EndsAt() time.Time {
	minutes := b.Duration.Mul(decimal.NewFromInt(60)).IntPart()
	return b.StartsAt.Add(time.Duration(minutes) * time.Minute)
}

// ParseStartTime разбирает строку HH:MM
func ParseStartTime(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("start time %q must be HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// NormalizeStartTime приводит время к виду HH:MM с ведущим нулём: "9:00" -> "09:00"
func NormalizeStartTime(value string) (string, error) {
	hour, minute, err := ParseStartTime(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// CalendarDate обрезает время до начала дня, сохраняя часовой пояс
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartsAt собирает момент начала занятия из даты и HH:MM
func StartsAt(date time.Time, startTime string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseStartTime(startTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}
