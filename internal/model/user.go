package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID         int64     `json:"id"`
	TelegramID *int64    `json:"telegram_id"` // nil если пользователь не привязал Telegram
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// Teacher профиль учителя
type Teacher struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"` // владелец профиля
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	IsApproved bool            `json:"is_approved"`
	CreatedAt  time.Time       `json:"created_at"`
}
