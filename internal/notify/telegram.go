package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть *bot.Bot, нужная для отправки
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramNotifier доставляет уведомления в личные сообщения Telegram
type TelegramNotifier struct {
	sender MessageSender
	users  UserLookup
	logger *zap.Logger
}

func NewTelegramNotifier(sender MessageSender, users UserLookup, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

// Notify отправляет уведомление. Пользователи без привязанного Telegram пропускаются.
func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, notification model.Notification) error {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.TelegramID == nil {
		n.logger.Debug("User has no telegram chat, notification skipped",
			zap.Int64("user_id", userID),
			zap.String("kind", string(notification.Kind)),
		)
		return nil
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *user.TelegramID,
		Text:      FormatHTML(notification),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Debug("Notification sent",
		zap.Int64("user_id", userID),
		zap.String("kind", string(notification.Kind)),
	)
	return nil
}

// FormatHTML текст сообщения: заголовок жирным, затем тело
func FormatHTML(notification model.Notification) string {
	return fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(notification.Title), html.EscapeString(notification.Body))
}
