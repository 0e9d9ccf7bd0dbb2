package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusApproved  PayoutStatus = "approved"
	PayoutStatusRejected  PayoutStatus = "rejected"
	PayoutStatusCompleted PayoutStatus = "completed"
)

// PayoutRequest заявка учителя на вывод средств
type PayoutRequest struct {
	ID              int64           `json:"id"`
	TeacherID       int64           `json:"teacher_id"`
	WalletID        int64           `json:"wallet_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          PayoutStatus    `json:"status"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	ApprovedBy      *int64          `json:"approved_by"` // админ, принявший решение (одобрение или отказ)
	RejectionReason *string         `json:"rejection_reason"`
	ProcessedAt     *time.Time      `json:"processed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
