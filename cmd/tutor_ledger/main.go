package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutor_ledger/internal/app"
	"github.com/Freeeeeet/tutor_ledger/internal/config"
	"github.com/Freeeeeet/tutor_ledger/internal/controller"
	"github.com/Freeeeeet/tutor_ledger/internal/controller/handlers"
	"github.com/Freeeeeet/tutor_ledger/internal/notify"
	"github.com/Freeeeeet/tutor_ledger/internal/repository"
	"github.com/Freeeeeet/tutor_ledger/internal/repository/base"
	"github.com/Freeeeeet/tutor_ledger/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting tutor ledger",
		zap.String("environment", cfg.Environment),
		zap.String("platform_fee_percent", cfg.PlatformFeePercent.String()),
		zap.String("timezone", cfg.Location.String()),
	)

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return fmt.Errorf("create db pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	// Репозитории
	repo := base.NewRepository(pool)
	userRepo := repository.NewUserRepository(repo)
	teacherRepo := repository.NewTeacherRepository(repo)
	scheduleRepo := repository.NewRecurringScheduleRepository(repo)
	bookingRepo := repository.NewBookingRepository(repo)
	sessionRepo := repository.NewSessionRepository(repo)
	paymentRepo := repository.NewPaymentRepository(repo)
	walletRepo := repository.NewWalletRepository(repo)
	revenueRepo := repository.NewRevenueRepository(repo)
	payoutRepo := repository.NewPayoutRepository(repo)

	var (
		telegram *bot.Bot
		notifier service.Notifier
	)
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notifier = notify.NewTelegramNotifier(telegram, userRepo, logger)
	} else {
		logger.Warn("TELEGRAM_TOKEN is not set, bot is disabled and notifications are only logged")
		notifier = notify.NewLogNotifier(logger)
	}

	// Сервисы
	walletService := service.NewWalletService(repo, walletRepo, payoutRepo, revenueRepo, teacherRepo, notifier, cfg.PlatformFeePercent, logger)
	paymentService := service.NewPaymentService(repo, bookingRepo, paymentRepo, teacherRepo, walletService, notifier, cfg.Currency, logger)
	bookingService := service.NewBookingService(repo, bookingRepo, sessionRepo, paymentRepo, teacherRepo, notifier, cfg.Location, logger)
	recurringService := service.NewRecurringService(repo, bookingRepo, scheduleRepo, teacherRepo, notifier, cfg.Location, logger)
	automationService := service.NewAutomationService(repo, bookingRepo, sessionRepo, teacherRepo, notifier, logger)

	if telegram != nil {
		cmdHandlers := handlers.NewHandlers(userRepo, teacherRepo, bookingService, paymentService, recurringService, walletService, cfg.Currency, cfg.Location, logger)
		botController := controller.NewBotController(telegram, cmdHandlers, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Failed to register bot commands menu", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	var (
		locker      app.JobLocker = app.NoopLocker{}
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		locker = app.NewRedisJobLocker(redisClient, cfg.JobLockTTL, logger)
	} else {
		logger.Warn("REDIS_URL is not set: job locks are local and payment events are not consumed")
	}

	scheduler := app.NewScheduler(locker, cfg.JobLockTTL, cfg.Location, logger)
	for _, job := range app.AutomationJobs(cfg.Cron, automationService) {
		if err := scheduler.Register(job); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// nil-канал без Redis: select ниже его никогда не выберет
	var consumerDone chan error
	if redisClient != nil {
		hostname, _ := os.Hostname()
		consumer := app.NewPaymentConsumer(redisClient, paymentService, app.PaymentConsumerConfig{
			Stream:           cfg.PaymentStream,
			Group:            cfg.PaymentConsumerGroup,
			Consumer:         fmt.Sprintf("%s-%d", hostname, os.Getpid()),
			DeadLetterStream: cfg.PaymentDeadLetterStream,
		}, logger)
		consumerDone = make(chan error, 1)
		go func() { consumerDone <- consumer.Run(ctx) }()
	}

	if err := awaitShutdown(ctx, consumerDone); err != nil {
		return err
	}
	logger.Info("Shutting down")

	if consumerDone != nil {
		select {
		case err := <-consumerDone:
			if err != nil {
				return fmt.Errorf("payment consumer: %w", err)
			}
		case <-time.After(10 * time.Second):
			logger.Warn("Payment consumer did not stop in time")
		}
	}
	return nil
}

// awaitShutdown ждёт сигнала остановки. Если потребитель оплат завершился раньше,
// возвращает ошибку: без него оплаты не проводятся и кошельки не пополняются.
func awaitShutdown(ctx context.Context, consumerDone <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-consumerDone:
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("stopped unexpectedly")
		}
		return fmt.Errorf("payment consumer: %w", err)
	}
}
