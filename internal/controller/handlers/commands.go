package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(_ context.Context, user *model.User, _ []string) (string, error) {
	return fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Здесь можно записываться на занятия, оплачивать их и следить за кошельком учителя.\n\n"+
			"Список команд: /help",
		user.FirstName,
	), nil
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(_ context.Context, user *model.User, _ []string) (string, error) {
	text := "📚 Справка по командам:\n\n" +
		"Для студентов:\n" +
		"/mybookings [статус] - Мои занятия\n" +
		"/booking <id> - Подробности занятия\n" +
		"/slots <учитель> - Еженедельные слоты учителя\n" +
		"/book <учитель> <ГГГГ-ММ-ДД> <ЧЧ:ММ> <часы> [заметка] - Записаться\n" +
		"/subscribe <учитель> <слот> [single|monthly|quarterly] - Записаться на серию\n" +
		"/pay <id> - Оплатить подтверждённое занятие\n" +
		"/cancel <id> - Отменить занятие\n" +
		"/startsession <id>, /endsession <id> - Начать и завершить занятие\n\n" +
		"Для учителей:\n" +
		"/confirm <id>, /reject <id> - Ответить на заявку\n" +
		"/wallet - Баланс и выплаты\n" +
		"/transactions - Последние операции\n" +
		"/payout <сумма> - Заявка на вывод"

	if user.Role == model.RoleAdmin {
		text += "\n\nДля администраторов:\n" +
			"/payouts [статус] - Заявки на вывод\n" +
			"/approvepayout <id>, /completepayout <id> - Одобрить и провести выплату\n" +
			"/rejectpayout <id> <причина> - Отклонить выплату\n" +
			"/revenue - Доход платформы\n" +
			"/reconcile <учитель> - Сверка кошелька с журналом"
	}
	return text, nil
}
