package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	msgInternalError = "❌ Произошла ошибка. Попробуйте позже."
	msgUnknownUser   = "❌ Аккаунт не найден. Привяжите Telegram в личном кабинете и повторите команду."
)

// errTeacherOnly и errAdminOnly видны пользователю как есть
var (
	errTeacherOnly = fmt.Errorf("%w: команда доступна только учителям", service.ErrForbidden)
	errAdminOnly   = fmt.Errorf("%w: команда доступна только администраторам", service.ErrForbidden)
)

// MatchCommand совпадает с сообщением, первое слово которого /name или /name@bot
func MatchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, _ := splitCommand(update.Message.Text)
		return cmd == name
	}
}

// Handle оборачивает команду в обработчик бота
func (h *Handlers) Handle(cmd Command) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}

		reply := h.Execute(ctx, update.Message.From.ID, update.Message.Text, cmd)
		h.sendMessage(ctx, b, update.Message.Chat.ID, reply)
	}
}

// Execute находит пользователя, выполняет команду и возвращает текст ответа.
// Ошибки сервисов превращаются в сообщение для пользователя.
func (h *Handlers) Execute(ctx context.Context, telegramID int64, text string, cmd Command) string {
	user, err := h.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return msgInternalError
	}
	if user == nil {
		return msgUnknownUser
	}

	_, args := splitCommand(text)
	reply, err := cmd.Run(ctx, user, args)
	if err != nil {
		return h.errorText(cmd.Name, user, err)
	}
	return reply
}

func (h *Handlers) errorText(command string, user *model.User, err error) string {
	if service.StatusCode(err) >= 500 {
		h.logger.Error("Command failed",
			zap.String("command", command),
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return msgInternalError
	}

	h.logger.Debug("Command rejected",
		zap.String("command", command),
		zap.Int64("user_id", user.ID),
		zap.Error(err),
	)
	return "❌ " + service.Message(err)
}

// requireTeacher возвращает профиль учителя текущего пользователя
func (h *Handlers) requireTeacher(ctx context.Context, user *model.User) (*model.Teacher, error) {
	teacher, err := h.teachers.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, errTeacherOnly
	}
	return teacher, nil
}

func requireAdmin(user *model.User) error {
	if user.Role != model.RoleAdmin {
		return errAdminOnly
	}
	return nil
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// splitCommand отделяет имя команды без "/" и @bot от аргументов
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return strings.ToLower(name), fields[1:]
}

// usage ошибка неверных аргументов команды
func usage(format string) error {
	return fmt.Errorf("%w: использование: %s", service.ErrBadRequest, format)
}
