package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.sent = append(s.sent, params)
	return &models.Message{}, s.err
}

type fakeUsers map[int64]*model.User

func (u fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return u[id], nil
}

func telegramID(id int64) *int64 { return &id }

var reminder = model.Notification{
	Kind:  model.NotificationBookingReminder,
	Title: "⏰ Скоро занятие",
	Body:  "Алгебра <повтор> в 15:00",
	Refs:  map[string]int64{"booking_id": 7},
}

func TestTelegramNotifier_Notify(t *testing.T) {
	sender := &fakeSender{}
	users := fakeUsers{
		1: {ID: 1, TelegramID: telegramID(123456)},
		2: {ID: 2},
	}
	notifier := NewTelegramNotifier(sender, users, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, notifier.Notify(ctx, 1, reminder))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(123456), sender.sent[0].ChatID)
	assert.Equal(t, models.ParseModeHTML, sender.sent[0].ParseMode)
	assert.Equal(t, "<b>⏰ Скоро занятие</b>\n\nАлгебра &lt;повтор&gt; в 15:00", sender.sent[0].Text)

	// Без Telegram и неизвестный пользователь пропускаются без ошибки
	require.NoError(t, notifier.Notify(ctx, 2, reminder))
	require.NoError(t, notifier.Notify(ctx, 3, reminder))
	assert.Len(t, sender.sent, 1)
}

func TestTelegramNotifier_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("Forbidden: bot was blocked by the user")}
	notifier := NewTelegramNotifier(sender, fakeUsers{1: {ID: 1, TelegramID: telegramID(1)}}, zap.NewNop())

	err := notifier.Notify(context.Background(), 1, reminder)
	assert.ErrorContains(t, err, "blocked")
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	notifier := NewLogNotifier(zap.New(core))

	require.NoError(t, notifier.Notify(context.Background(), 42, reminder))
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, int64(42), fields["user_id"])
	assert.Equal(t, string(model.NotificationBookingReminder), fields["kind"])
	assert.Equal(t, int64(7), fields["booking_id"])
}
