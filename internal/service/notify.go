package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"go.uber.org/zap"
)

// deliver отправляет уведомление; ошибка только логируется
func deliver(ctx context.Context, notifier Notifier, logger *zap.Logger, userID int64, n model.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, userID, n); err != nil {
		logger.Warn("Failed to deliver notification",
			zap.Int64("user_id", userID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err),
		)
	}
}

func bookingRefs(b *model.Booking) map[string]int64 {
	return map[string]int64{"booking_id": b.ID}
}

func bookingWhen(b *model.Booking) string {
	return fmt.Sprintf("%s в %s", b.Date.Format("02.01.2006"), b.StartTime)
}

func requestedNotification(b *model.Booking) model.Notification {
	return model.Notification{
		Kind:  model.NotificationBookingRequested,
		Title: "📝 Новая заявка на занятие",
		Body:  fmt.Sprintf("Студент хочет записаться на %s (%s ч). Подтвердите или отклоните заявку.", bookingWhen(b), b.Duration.String()),
		Refs:  bookingRefs(b),
	}
}

func confirmedNotification(b *model.Booking) model.Notification {
	return model.Notification{
		Kind:  model.NotificationBookingConfirmed,
		Title: "✅ Занятие подтверждено",
		Body:  fmt.Sprintf("Учитель подтвердил занятие %s. К оплате: %s.", bookingWhen(b), b.TotalPrice.StringFixed(2)),
		Refs:  bookingRefs(b),
	}
}

func rejectedNotification(b *model.Booking) model.Notification {
	return model.Notification{
		Kind:  model.NotificationBookingRejected,
		Title: "🚫 Заявка отклонена",
		Body:  fmt.Sprintf("Учитель отклонил заявку на %s.", bookingWhen(b)),
		Refs:  bookingRefs(b),
	}
}

func canceledNotification(b *model.Booking) model.Notification {
	return model.Notification{
		Kind:  model.NotificationBookingCanceled,
		Title: "❌ Занятие отменено",
		Body:  fmt.Sprintf("Занятие %s отменено.", bookingWhen(b)),
		Refs:  bookingRefs(b),
	}
}

func reminderNotification(b *model.Booking) model.Notification {
	return model.Notification{
		Kind:  model.NotificationBookingReminder,
		Title: "⏰ Скоро занятие",
		Body:  fmt.Sprintf("Напоминаем: занятие начнётся %s.", bookingWhen(b)),
		Refs:  bookingRefs(b),
	}
}

func noShowNotification(b *model.Booking) model.Notification {
	return model.Notification{
		Kind:  model.NotificationBookingNoShow,
		Title: "⌛ Занятие не состоялось",
		Body:  fmt.Sprintf("Занятие %s отменено автоматически: оно не началось вовремя.", bookingWhen(b)),
		Refs:  bookingRefs(b),
	}
}

func sessionStartedNotification(b *model.Booking, s *model.Session) model.Notification {
	return model.Notification{
		Kind:  model.NotificationSessionStarted,
		Title: "🎥 Занятие началось",
		Body:  fmt.Sprintf("Комната %s открыта для занятия %s.", s.RoomID, bookingWhen(b)),
		Refs:  map[string]int64{"booking_id": b.ID, "session_id": s.ID},
	}
}

func sessionEndedNotification(b *model.Booking, s *model.Session) model.Notification {
	return model.Notification{
		Kind:  model.NotificationSessionEnded,
		Title: "✔️ Занятие завершено",
		Body:  fmt.Sprintf("Занятие %s завершено.", bookingWhen(b)),
		Refs:  map[string]int64{"booking_id": b.ID, "session_id": s.ID},
	}
}

func paymentCompletedNotification(b *model.Booking, earning string) model.Notification {
	return model.Notification{
		Kind:  model.NotificationPaymentCompleted,
		Title: "💳 Занятие оплачено",
		Body:  fmt.Sprintf("Студент оплатил занятие %s. На ваш баланс зачислено %s.", bookingWhen(b), earning),
		Refs:  bookingRefs(b),
	}
}

func payoutNotification(p *model.PayoutRequest) model.Notification {
	var body string
	switch p.Status {
	case model.PayoutStatusApproved:
		body = fmt.Sprintf("Заявка на вывод %s одобрена.", p.Amount.StringFixed(2))
	case model.PayoutStatusRejected:
		body = fmt.Sprintf("Заявка на вывод %s отклонена, средства возвращены на баланс.", p.Amount.StringFixed(2))
		if p.RejectionReason != nil && *p.RejectionReason != "" {
			body += " Причина: " + *p.RejectionReason
		}
	case model.PayoutStatusCompleted:
		body = fmt.Sprintf("Выплата %s отправлена.", p.Amount.StringFixed(2))
	default:
		body = fmt.Sprintf("Заявка на вывод %s принята.", p.Amount.StringFixed(2))
	}
	return model.Notification{
		Kind:  model.NotificationPayoutUpdated,
		Title: "💰 Выплата",
		Body:  body,
		Refs:  map[string]int64{"payout_id": p.ID},
	}
}

func recurringRequestedNotification(first *model.Booking, count int) model.Notification {
	return model.Notification{
		Kind:  model.NotificationRecurringRequested,
		Title: "🔁 Новая серия занятий",
		Body:  fmt.Sprintf("Студент записался на %d еженедельных занятий, первое %s.", count, bookingWhen(first)),
		Refs:  bookingRefs(first),
	}
}
