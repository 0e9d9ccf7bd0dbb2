package notify

import (
	"context"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"go.uber.org/zap"
)

// LogNotifier пишет уведомления в лог, когда Telegram не настроен
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID int64, notification model.Notification) error {
	fields := []zap.Field{
		zap.Int64("user_id", userID),
		zap.String("kind", string(notification.Kind)),
		zap.String("title", notification.Title),
	}
	for name, id := range notification.Refs {
		fields = append(fields, zap.Int64(name, id))
	}
	n.logger.Info("Notification", fields...)
	return nil
}
