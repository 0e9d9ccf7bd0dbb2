package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
)

const recentTransactions = 10

// HandleWallet показывает баланс учителя и открытые заявки на вывод
func (h *Handlers) HandleWallet(ctx context.Context, user *model.User, _ []string) (string, error) {
	teacher, err := h.requireTeacher(ctx, user)
	if err != nil {
		return "", err
	}

	wallet, err := h.wallet.GetWallet(ctx, teacher.ID)
	if err != nil {
		return "", err
	}
	payouts, err := h.wallet.ListPayouts(ctx, teacher.ID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("💼 Кошелёк\n\n")
	fmt.Fprintf(&sb, "Доступно: %s\n", h.formatMoney(wallet.Balance))
	fmt.Fprintf(&sb, "В выплатах: %s\n", h.formatMoney(wallet.PendingBalance))
	fmt.Fprintf(&sb, "Заработано всего: %s", h.formatMoney(wallet.TotalEarned))

	for _, payout := range payouts {
		if payout.Status == model.PayoutStatusPending || payout.Status == model.PayoutStatusApproved {
			sb.WriteString("\n\n" + h.formatPayout(payout))
		}
	}
	return sb.String(), nil
}

// HandleTransactions показывает последние операции кошелька
func (h *Handlers) HandleTransactions(ctx context.Context, user *model.User, _ []string) (string, error) {
	teacher, err := h.requireTeacher(ctx, user)
	if err != nil {
		return "", err
	}

	txns, err := h.wallet.ListTransactions(ctx, teacher.ID, recentTransactions, 0)
	if err != nil {
		return "", err
	}
	if len(txns) == 0 {
		return "📭 Операций пока нет.", nil
	}

	var sb strings.Builder
	sb.WriteString("🧾 Последние операции:")
	for _, txn := range txns {
		sign := "+"
		if txn.Type == model.TransactionTypeDebit {
			sign = "−"
		}
		fmt.Fprintf(&sb, "\n%s %s%s %s", txn.CreatedAt.In(h.loc).Format("02.01 15:04"), sign, h.formatMoney(txn.Amount), txn.Description)
	}
	return sb.String(), nil
}

// HandlePayout создаёт заявку на вывод
func (h *Handlers) HandlePayout(ctx context.Context, user *model.User, args []string) (string, error) {
	teacher, err := h.requireTeacher(ctx, user)
	if err != nil {
		return "", err
	}
	amount, err := argDecimal(args, 0, "/payout <сумма>")
	if err != nil {
		return "", err
	}

	payout, err := h.wallet.CreatePayoutRequest(ctx, teacher.ID, amount)
	if err != nil {
		return "", err
	}
	return "📤 Заявка на вывод создана.\n\n" + h.formatPayout(payout), nil
}
