package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TeacherWallet внутренний кошелёк учителя.
// Balance, PendingBalance и TotalEarned кешируют сумму по wallet_transactions.
type TeacherWallet struct {
	ID             int64           `json:"id"`
	TeacherID      int64           `json:"teacher_id"`
	Balance        decimal.Decimal `json:"balance"`         // доступно к выводу
	PendingBalance decimal.Decimal `json:"pending_balance"` // зарезервировано под выплаты
	TotalEarned    decimal.Decimal `json:"total_earned"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// WalletTransaction неизменяемая запись журнала
type WalletTransaction struct {
	ID          int64           `json:"id"`
	WalletID    int64           `json:"wallet_id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	BookingID   *int64          `json:"booking_id"`
	PaymentID   *int64          `json:"payment_id"`
	PayoutID    *int64          `json:"payout_id"` // заполнен у резервов и возвратов по выплатам
	CreatedAt   time.Time       `json:"created_at"`
}

// PlatformRevenue доля платформы с оплаты бронирования
type PlatformRevenue struct {
	ID             int64           `json:"id"`
	BookingID      int64           `json:"booking_id"`
	PaymentID      int64           `json:"payment_id"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	TeacherEarning decimal.Decimal `json:"teacher_earning"`
	FeePercent     decimal.Decimal `json:"fee_percent"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LedgerTotals агрегаты журнала одного кошелька
type LedgerTotals struct {
	Credits       decimal.Decimal // все CREDIT
	EarnedCredits decimal.Decimal // CREDIT без payout_id
	Debits        decimal.Decimal
}

// RevenueTotals агрегат по доходу платформы
type RevenueTotals struct {
	Bookings       int64           `json:"bookings"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	TeacherEarning decimal.Decimal `json:"teacher_earning"`
}
