package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/shopspring/decimal"
)

// statusDisplay содержит emoji и текст для отображения статуса
type statusDisplay struct {
	Emoji string
	Text  string
}

func bookingStatusDisplay(status model.BookingStatus) statusDisplay {
	displays := map[model.BookingStatus]statusDisplay{
		model.BookingStatusPending:   {"⏳", "Ожидает подтверждения"},
		model.BookingStatusConfirmed: {"✅", "Подтверждено"},
		model.BookingStatusCompleted: {"🎓", "Проведено"},
		model.BookingStatusCanceled:  {"❌", "Отменено"},
		model.BookingStatusRejected:  {"🚫", "Отклонено"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return statusDisplay{"❓", "Неизвестно"}
}

func payoutStatusDisplay(status model.PayoutStatus) statusDisplay {
	displays := map[model.PayoutStatus]statusDisplay{
		model.PayoutStatusPending:   {"⏳", "На рассмотрении"},
		model.PayoutStatusApproved:  {"👍", "Одобрена"},
		model.PayoutStatusRejected:  {"🚫", "Отклонена"},
		model.PayoutStatusCompleted: {"💸", "Выплачена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return statusDisplay{"❓", "Неизвестно"}
}

// formatMoney форматирует сумму с валютой
func (h *Handlers) formatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " " + h.currency
}

// formatBooking форматирует бронирование для отображения
func (h *Handlers) formatBooking(booking *model.Booking) string {
	display := bookingStatusDisplay(booking.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Занятие #%d\n", display.Emoji, booking.ID)
	fmt.Fprintf(&sb, "📅 %s %s, %s ч\n", booking.Date.Format("02.01.2006"), booking.StartTime, booking.Duration.String())
	fmt.Fprintf(&sb, "💰 %s", h.formatMoney(booking.TotalPrice))
	if booking.Discount.IsPositive() {
		fmt.Fprintf(&sb, " (скидка %s)", h.formatMoney(booking.Discount))
	}
	fmt.Fprintf(&sb, "\n📊 %s", display.Text)

	if booking.Payment != nil {
		fmt.Fprintf(&sb, "\n💳 Оплата: %s", booking.Payment.Status)
	}
	if booking.Session != nil {
		fmt.Fprintf(&sb, "\n🎥 Комната: %s", booking.Session.RoomID)
	}
	return sb.String()
}

func (h *Handlers) formatPayout(payout *model.PayoutRequest) string {
	display := payoutStatusDisplay(payout.Status)
	text := fmt.Sprintf("%s Заявка #%d: %s, %s", display.Emoji, payout.ID, h.formatMoney(payout.Amount), display.Text)
	if payout.RejectionReason != nil {
		text += fmt.Sprintf("\nПричина: %s", *payout.RejectionReason)
	}
	return text
}

// argID разбирает положительный ID из аргумента i
func argID(args []string, i int, format string) (int64, error) {
	if i >= len(args) {
		return 0, usage(format)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, usage(format)
	}
	return id, nil
}

// argDecimal разбирает сумму, допускает запятую как разделитель
func argDecimal(args []string, i int, format string) (decimal.Decimal, error) {
	if i >= len(args) {
		return decimal.Zero, usage(format)
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(args[i], ",", "."))
	if err != nil {
		return decimal.Zero, usage(format)
	}
	return value, nil
}
