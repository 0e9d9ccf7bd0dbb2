package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/service"
	"github.com/shopspring/decimal"
)

var weekdayNames = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// HandleMyBookings показывает занятия учителя или студента
func (h *Handlers) HandleMyBookings(ctx context.Context, user *model.User, args []string) (string, error) {
	var status *model.BookingStatus
	if len(args) > 0 {
		s := model.BookingStatus(strings.ToLower(args[0]))
		status = &s
	}

	var (
		bookings []*model.Booking
		err      error
	)
	if user.Role == model.RoleTeacher {
		teacher, terr := h.requireTeacher(ctx, user)
		if terr != nil {
			return "", terr
		}
		bookings, err = h.bookings.ListByTeacher(ctx, teacher.ID, status)
	} else {
		bookings, err = h.bookings.ListByStudent(ctx, user.ID, status)
	}
	if err != nil {
		return "", err
	}

	if len(bookings) == 0 {
		return "📭 Занятий пока нет.", nil
	}

	parts := make([]string, 0, len(bookings)+1)
	parts = append(parts, fmt.Sprintf("📅 Занятия (%d):", len(bookings)))
	for _, booking := range bookings {
		parts = append(parts, h.formatBooking(booking))
	}
	return strings.Join(parts, "\n\n"), nil
}

// HandleBooking показывает одно занятие участнику или администратору
func (h *Handlers) HandleBooking(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/booking <id>")
	if err != nil {
		return "", err
	}

	booking, err := h.bookings.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if user.Role != model.RoleAdmin && booking.StudentID != user.ID {
		teacher, err := h.teachers.GetByUserID(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if teacher == nil || teacher.ID != booking.TeacherID {
			return "", fmt.Errorf("%w: это не ваше занятие", service.ErrForbidden)
		}
	}

	return h.formatBooking(booking), nil
}

// HandleBook создаёт заявку на одно занятие
func (h *Handlers) HandleBook(ctx context.Context, user *model.User, args []string) (string, error) {
	const format = "/book <учитель> <ГГГГ-ММ-ДД> <ЧЧ:ММ> <часы> [заметка]"
	if len(args) < 4 {
		return "", usage(format)
	}

	teacherID, err := argID(args, 0, format)
	if err != nil {
		return "", err
	}
	date, err := time.ParseInLocation(time.DateOnly, args[1], h.loc)
	if err != nil {
		return "", usage(format)
	}
	duration, err := argDecimal(args, 3, format)
	if err != nil {
		return "", err
	}

	booking, err := h.bookings.Create(ctx, service.CreateBookingInput{
		StudentID: user.ID,
		TeacherID: teacherID,
		Date:      date,
		StartTime: args[2],
		Duration:  duration,
		Notes:     strings.Join(args[4:], " "),
	})
	if err != nil {
		return "", err
	}

	return "📨 Заявка отправлена учителю.\n\n" + h.formatBooking(booking), nil
}

// HandleSlots показывает активные еженедельные слоты учителя
func (h *Handlers) HandleSlots(ctx context.Context, _ *model.User, args []string) (string, error) {
	teacherID, err := argID(args, 0, "/slots <учитель>")
	if err != nil {
		return "", err
	}

	slots, err := h.recurring.ListSlots(ctx, teacherID)
	if err != nil {
		return "", err
	}
	if len(slots) == 0 {
		return "📭 У учителя нет еженедельных слотов.", nil
	}

	var sb strings.Builder
	sb.WriteString("🔁 Еженедельные слоты:\n")
	for _, slot := range slots {
		fmt.Fprintf(&sb, "\n#%d %s %s, %d мин", slot.ID, weekdayNames[slot.Weekday%7], slot.StartTime(), slot.DurationMinutes)
	}
	return sb.String(), nil
}

// HandleSubscribe создаёт серию еженедельных занятий по слоту
func (h *Handlers) HandleSubscribe(ctx context.Context, user *model.User, args []string) (string, error) {
	const format = "/subscribe <учитель> <слот> [single|monthly|quarterly]"
	teacherID, err := argID(args, 0, format)
	if err != nil {
		return "", err
	}
	slotID, err := argID(args, 1, format)
	if err != nil {
		return "", err
	}
	plan := model.PaymentPlanMonthly
	if len(args) > 2 {
		plan = model.PaymentPlan(strings.ToLower(args[2]))
	}

	result, err := h.recurring.Generate(ctx, service.GenerateInput{
		StudentID:  user.ID,
		TeacherID:  teacherID,
		ScheduleID: &slotID,
		Plan:       plan,
		Discount:   decimal.Zero,
	})
	if err != nil {
		return "", err
	}

	if result.Created == 0 {
		return "ℹ️ Все занятия этой серии уже забронированы.", nil
	}

	text := fmt.Sprintf("🔁 Создано занятий: %d на сумму %s", result.Created, h.formatMoney(result.TotalAmount))
	if result.Skipped > 0 {
		text += fmt.Sprintf("\nПропущено уже забронированных: %d", result.Skipped)
	}
	for _, booking := range result.Bookings {
		text += fmt.Sprintf("\n• #%d %s %s", booking.ID, booking.Date.Format("02.01.2006"), booking.StartTime)
	}
	return text, nil
}

// HandlePay начинает оплату подтверждённого занятия
func (h *Handlers) HandlePay(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/pay <id>")
	if err != nil {
		return "", err
	}

	payment, err := h.payments.Initiate(ctx, id, user.ID)
	if err != nil {
		return "", err
	}

	if payment.Status == model.PaymentStatusCompleted {
		return fmt.Sprintf("✅ Занятие #%d уже оплачено.", id), nil
	}
	return fmt.Sprintf("💳 Счёт #%d на %s выставлен, ожидаем подтверждения оплаты.", payment.ID, h.formatMoney(payment.Amount)), nil
}

// HandleCancel отменяет занятие от имени студента, учителя или администратора
func (h *Handlers) HandleCancel(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/cancel <id>")
	if err != nil {
		return "", err
	}

	booking, err := h.bookings.Cancel(ctx, id, user.ID, user.Role)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("❌ Занятие #%d отменено.", booking.ID), nil
}

// HandleConfirm подтверждает заявку учителем
func (h *Handlers) HandleConfirm(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/confirm <id>")
	if err != nil {
		return "", err
	}

	booking, err := h.bookings.Confirm(ctx, id, user.ID)
	if err != nil {
		return "", err
	}
	return "✅ Заявка подтверждена.\n\n" + h.formatBooking(booking), nil
}

// HandleReject отклоняет заявку учителем
func (h *Handlers) HandleReject(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/reject <id>")
	if err != nil {
		return "", err
	}

	booking, err := h.bookings.Reject(ctx, id, user.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🚫 Заявка #%d отклонена.", booking.ID), nil
}

func (h *Handlers) HandleStartSession(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/startsession <id>")
	if err != nil {
		return "", err
	}

	session, err := h.bookings.StartSession(ctx, id, user.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🎥 Занятие #%d идёт. Комната: %s", id, session.RoomID), nil
}

func (h *Handlers) HandleEndSession(ctx context.Context, user *model.User, args []string) (string, error) {
	id, err := argID(args, 0, "/endsession <id>")
	if err != nil {
		return "", err
	}

	if _, err := h.bookings.EndSession(ctx, id, user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🎓 Занятие #%d завершено.", id), nil
}
