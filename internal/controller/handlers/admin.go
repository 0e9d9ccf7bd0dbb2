package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
)

// HandlePayouts список заявок на вывод по статусу, по умолчанию pending
func (h *Handlers) HandlePayouts(ctx context.Context, user *model.User, args []string) (string, error) {
	if err := requireAdmin(user); err != nil {
		return "", err
	}

	status := model.PayoutStatusPending
	if len(args) > 0 {
		status = model.PayoutStatus(strings.ToLower(args[0]))
	}

	payouts, err := h.wallet.ListPayoutsByStatus(ctx, status)
	if err != nil {
		return "", err
	}
	if len(payouts) == 0 {
		return fmt.Sprintf("📭 Заявок в статусе %s нет.", status), nil
	}

	parts := make([]string, 0, len(payouts))
	for _, payout := range payouts {
		parts = append(parts, fmt.Sprintf("%s (учитель %d)", h.formatPayout(payout), payout.TeacherID))
	}
	return strings.Join(parts, "\n"), nil
}

func (h *Handlers) HandleApprovePayout(ctx context.Context, user *model.User, args []string) (string, error) {
	if err := requireAdmin(user); err != nil {
		return "", err
	}
	id, err := argID(args, 0, "/approvepayout <id>")
	if err != nil {
		return "", err
	}

	payout, err := h.wallet.ApprovePayout(ctx, id, user.ID)
	if err != nil {
		return "", err
	}
	return h.formatPayout(payout), nil
}

func (h *Handlers) HandleRejectPayout(ctx context.Context, user *model.User, args []string) (string, error) {
	if err := requireAdmin(user); err != nil {
		return "", err
	}
	id, err := argID(args, 0, "/rejectpayout <id> <причина>")
	if err != nil {
		return "", err
	}

	payout, err := h.wallet.RejectPayout(ctx, id, user.ID, strings.Join(args[1:], " "))
	if err != nil {
		return "", err
	}
	return h.formatPayout(payout), nil
}

func (h *Handlers) HandleCompletePayout(ctx context.Context, user *model.User, args []string) (string, error) {
	if err := requireAdmin(user); err != nil {
		return "", err
	}
	id, err := argID(args, 0, "/completepayout <id>")
	if err != nil {
		return "", err
	}

	payout, err := h.wallet.CompletePayout(ctx, id)
	if err != nil {
		return "", err
	}
	return h.formatPayout(payout), nil
}

// HandleRevenue суммарный доход платформы
func (h *Handlers) HandleRevenue(ctx context.Context, user *model.User, _ []string) (string, error) {
	if err := requireAdmin(user); err != nil {
		return "", err
	}

	totals, err := h.wallet.RevenueTotals(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"📈 Доход платформы\n\n"+
			"Оплаченных занятий: %d\n"+
			"Оборот: %s\n"+
			"Комиссия: %s\n"+
			"Учителям: %s",
		totals.Bookings,
		h.formatMoney(totals.GrossAmount),
		h.formatMoney(totals.PlatformFee),
		h.formatMoney(totals.TeacherEarning),
	), nil
}

// HandleReconcile сверяет кошелёк учителя с журналом
func (h *Handlers) HandleReconcile(ctx context.Context, user *model.User, args []string) (string, error) {
	if err := requireAdmin(user); err != nil {
		return "", err
	}
	teacherID, err := argID(args, 0, "/reconcile <учитель>")
	if err != nil {
		return "", err
	}

	report, err := h.wallet.Reconcile(ctx, teacherID)
	if err != nil {
		return "", err
	}
	if report.Consistent() {
		return fmt.Sprintf("✅ Кошелёк учителя %d сходится с журналом: баланс %s.", teacherID, h.formatMoney(report.Balance)), nil
	}
	return fmt.Sprintf("⚠️ Кошелёк учителя %d расходится с журналом:\n%s", teacherID, strings.Join(report.Mismatches, "\n")), nil
}
