package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/model"
	"github.com/Freeeeeet/tutor_ledger/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentHandler обработчик результатов оплаты
type PaymentHandler interface {
	HandleEvent(ctx context.Context, event model.PaymentEvent) error
}

// PaymentConsumerConfig параметры чтения потока оплат
type PaymentConsumerConfig struct {
	Stream           string
	Group            string
	Consumer         string
	DeadLetterStream string
	BatchSize        int64
	Block            time.Duration
	RetryDelay       time.Duration
	MaxDeliveries    int64 // после стольких доставок сообщение с временной ошибкой уходит в dead-letter
}

// PaymentConsumer читает результаты оплат из Redis Stream в группе потребителей.
// Сообщение подтверждается после успешной обработки; несопоставимые события уходят
// в dead-letter поток, временные ошибки оставляют сообщение в pending для повторной доставки,
// пока число доставок не достигнет MaxDeliveries.
type PaymentConsumer struct {
	client  redis.Cmdable
	handler PaymentHandler
	cfg     PaymentConsumerConfig
	logger  *zap.Logger
}

func NewPaymentConsumer(client redis.Cmdable, handler PaymentHandler, cfg PaymentConsumerConfig, logger *zap.Logger) *PaymentConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &PaymentConsumer{
		client:  client,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run читает поток до отмены ctx
func (c *PaymentConsumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	c.logger.Info("Payment consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.Group),
		zap.String("consumer", c.cfg.Consumer),
	)

	// Сначала дочитываем свои неподтверждённые сообщения
	cursor := "0"
	for {
		if ctx.Err() != nil {
			c.logger.Info("Payment consumer stopped")
			return nil
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, cursor},
			Count:    c.cfg.BatchSize,
			Block:    c.cfg.Block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			cursor = ">"
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Failed to read payment events", zap.Error(err))
			c.sleep(ctx)
			continue
		}

		received, failed := 0, 0
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				received++
				if !c.process(ctx, msg) {
					failed++
				}
			}
		}

		switch {
		case failed > 0:
			// Повторим pending-сообщения после паузы
			cursor = "0"
			c.sleep(ctx)
		case cursor == "0" && received == 0:
			cursor = ">"
		}
	}
}

// process обрабатывает одно сообщение. false означает временную ошибку, сообщение не подтверждено.
func (c *PaymentConsumer) process(ctx context.Context, msg redis.XMessage) bool {
	event, err := ParsePaymentEvent(msg.Values)
	if err == nil {
		err = c.handler.HandleEvent(ctx, event)
	}

	switch {
	case err == nil:
		return c.ack(ctx, msg.ID)
	case errors.Is(err, service.ErrUnresolvableEvent):
		c.logger.Warn("Dropping unresolvable payment event",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		if err := c.deadLetter(ctx, msg, err); err != nil {
			c.logger.Error("Failed to dead-letter payment event", zap.String("message_id", msg.ID), zap.Error(err))
			return false
		}
		return c.ack(ctx, msg.ID)
	default:
		return c.retryOrGiveUp(ctx, msg, event, err)
	}
}

// retryOrGiveUp оставляет сообщение в pending либо, если доставок уже MaxDeliveries,
// переносит его в dead-letter, чтобы оно не блокировало чтение новых сообщений
func (c *PaymentConsumer) retryOrGiveUp(ctx context.Context, msg redis.XMessage, event model.PaymentEvent, cause error) bool {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		c.logger.Error("Failed to read delivery count", zap.String("message_id", msg.ID), zap.Error(err))
		return false
	}

	var deliveries int64
	if len(pending) > 0 {
		deliveries = pending[0].RetryCount
	}

	if deliveries < c.cfg.MaxDeliveries {
		c.logger.Error("Failed to handle payment event, will retry",
			zap.String("message_id", msg.ID),
			zap.Int64("booking_id", event.BookingID),
			zap.Int64("deliveries", deliveries),
			zap.Error(cause),
		)
		return false
	}

	c.logger.Error("Giving up on payment event",
		zap.String("message_id", msg.ID),
		zap.Int64("booking_id", event.BookingID),
		zap.Int64("deliveries", deliveries),
		zap.Error(cause),
	)
	if err := c.deadLetter(ctx, msg, fmt.Errorf("gave up after %d deliveries: %w", deliveries, cause)); err != nil {
		c.logger.Error("Failed to dead-letter payment event", zap.String("message_id", msg.ID), zap.Error(err))
		return false
	}
	return c.ack(ctx, msg.ID)
}

func (c *PaymentConsumer) ack(ctx context.Context, id string) bool {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		c.logger.Error("Failed to ack payment event", zap.String("message_id", id), zap.Error(err))
		return false
	}
	return true
}

func (c *PaymentConsumer) deadLetter(ctx context.Context, msg redis.XMessage, cause error) error {
	payload, err := json.Marshal(msg.Values)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DeadLetterStream,
		Values: []any{"source_id", msg.ID, "error", cause.Error(), "payload", string(payload)},
	}).Err()
}

func (c *PaymentConsumer) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.RetryDelay):
	}
}

// ParsePaymentEvent разбирает поля сообщения: booking_id, outcome, external_payment_id, amount.
// Ошибка разбора оборачивает service.ErrUnresolvableEvent.
func ParsePaymentEvent(values map[string]any) (model.PaymentEvent, error) {
	field := func(name string) string {
		value, ok := values[name]
		if !ok || value == nil {
			return ""
		}
		return fmt.Sprint(value)
	}

	var event model.PaymentEvent

	bookingID, err := strconv.ParseInt(field("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return event, fmt.Errorf("%w: invalid booking_id %q", service.ErrUnresolvableEvent, field("booking_id"))
	}
	event.BookingID = bookingID

	event.Outcome = model.PaymentOutcome(strings.ToLower(field("outcome")))
	if event.Outcome != model.PaymentOutcomeSucceeded && event.Outcome != model.PaymentOutcomeFailed {
		return event, fmt.Errorf("%w: invalid outcome %q", service.ErrUnresolvableEvent, field("outcome"))
	}

	event.ExternalPaymentID = field("external_payment_id")

	if raw := field("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return event, fmt.Errorf("%w: invalid amount %q", service.ErrUnresolvableEvent, raw)
		}
		event.Amount = amount
	}

	return event, nil
}
