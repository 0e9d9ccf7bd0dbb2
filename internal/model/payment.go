package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment оплата бронирования, не больше одной на бронирование
type Payment struct {
	ID                int64               `json:"id"`
	BookingID         int64               `json:"booking_id"`
	Amount            decimal.Decimal     `json:"amount"`
	Currency          string              `json:"currency"`
	Status            PaymentStatus       `json:"status"`
	ExternalPaymentID string              `json:"external_payment_id"`
	RefundedAt        *time.Time          `json:"refunded_at"`
	RefundAmount      decimal.NullDecimal `json:"refund_amount"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// PaymentEvent результат оплаты от платёжного шлюза
type PaymentEvent struct {
	BookingID         int64           `json:"booking_id"`
	Outcome           PaymentOutcome  `json:"outcome"`
	ExternalPaymentID string          `json:"external_payment_id"`
	Amount            decimal.Decimal `json:"amount"`
}
