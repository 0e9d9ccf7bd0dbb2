package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecurringSchedule еженедельный слот доступности учителя
type RecurringSchedule struct {
	ID              int64     `json:"id"`
	TeacherID       int64     `json:"teacher_id"`
	Weekday         int       `json:"weekday"`          // 0 = Sunday, 6 = Saturday
	StartHour       int       `json:"start_hour"`       // 0-23
	StartMinute     int       `json:"start_minute"`     // 0-59
	DurationMinutes int       `json:"duration_minutes"` // длительность в минутах
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StartTime время начала в формате HH:MM
func (s *RecurringSchedule) StartTime() string {
	return fmt.Sprintf("%02d:%02d", s.StartHour, s.StartMinute)
}

// DurationHours длительность в часах
func (s *RecurringSchedule) DurationHours() decimal.Decimal {
	return decimal.NewFromInt(int64(s.DurationMinutes)).Div(decimal.NewFromInt(60))
}

type PaymentPlan string

const (
	PaymentPlanSingle    PaymentPlan = "single"
	PaymentPlanMonthly   PaymentPlan = "monthly"
	PaymentPlanQuarterly PaymentPlan = "quarterly"
)

// Occurrences количество занятий в плане
func (p PaymentPlan) Occurrences() (int, bool) {
	switch p {
	case PaymentPlanSingle:
		return 1, true
	case PaymentPlanMonthly:
		return 4, true
	case PaymentPlanQuarterly:
		return 12, true
	}
	return 0, false
}

// DefaultEndDate дата окончания серии по умолчанию
func (p PaymentPlan) DefaultEndDate(first time.Time) time.Time {
	switch p {
	case PaymentPlanMonthly:
		return first.AddDate(0, 1, 0)
	case PaymentPlanQuarterly:
		return first.AddDate(0, 3, 0)
	default:
		return first.AddDate(0, 0, 7)
	}
}
