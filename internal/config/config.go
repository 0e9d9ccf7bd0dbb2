package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBDSN         string `mapstructure:"DB_DSN"`
	Environment   string `mapstructure:"ENV"`
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	RedisURL      string `mapstructure:"REDIS_URL"`

	PlatformFeePercent decimal.Decimal `mapstructure:"PLATFORM_FEE_PERCENT"`
	Currency           string          `mapstructure:"CURRENCY"`
	Location           *time.Location  `mapstructure:"TIMEZONE"`

	Cron       CronConfig
	JobLockTTL time.Duration `mapstructure:"JOB_LOCK_TTL"`

	PaymentStream           string `mapstructure:"PAYMENT_STREAM"`
	PaymentConsumerGroup    string `mapstructure:"PAYMENT_CONSUMER_GROUP"`
	PaymentDeadLetterStream string `mapstructure:"PAYMENT_DEAD_LETTER_STREAM"`
}

// CronConfig расписания периодических задач в формате cron из пяти полей
type CronConfig struct {
	Reminder          string `mapstructure:"CRON_REMINDER"`
	NoShow            string `mapstructure:"CRON_NO_SHOW"`
	AutoSession       string `mapstructure:"CRON_AUTO_SESSION"`
	SessionCompletion string `mapstructure:"CRON_SESSION_COMPLETION"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return fallback
	}

	cfg := &Config{
		DBDSN:         getenv("DB_DSN"),
		Environment:   env("ENV", "development"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		RedisURL:      getenv("REDIS_URL"),
		Currency:      env("CURRENCY", "EGP"),
		Cron: CronConfig{
			Reminder:          env("CRON_REMINDER", "0 * * * *"),
			NoShow:            env("CRON_NO_SHOW", "*/15 * * * *"),
			AutoSession:       env("CRON_AUTO_SESSION", "*/5 * * * *"),
			SessionCompletion: env("CRON_SESSION_COMPLETION", "*/10 * * * *"),
		},
		PaymentStream:           env("PAYMENT_STREAM", "payments:events"),
		PaymentConsumerGroup:    env("PAYMENT_CONSUMER_GROUP", "tutor-ledger"),
		PaymentDeadLetterStream: env("PAYMENT_DEAD_LETTER_STREAM", "payments:events:dead"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	fee, err := decimal.NewFromString(env("PLATFORM_FEE_PERCENT", "20"))
	if err != nil {
		return nil, fmt.Errorf("parse PLATFORM_FEE_PERCENT: %w", err)
	}
	if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("PLATFORM_FEE_PERCENT must be in [0, 100), got %s", fee)
	}
	cfg.PlatformFeePercent = fee

	cfg.Location, err = time.LoadLocation(env("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("parse TIMEZONE: %w", err)
	}

	cfg.JobLockTTL, err = time.ParseDuration(env("JOB_LOCK_TTL", "4m"))
	if err != nil {
		return nil, fmt.Errorf("parse JOB_LOCK_TTL: %w", err)
	}
	if cfg.JobLockTTL <= 0 {
		return nil, fmt.Errorf("JOB_LOCK_TTL must be positive")
	}

	if err := cfg.Cron.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c CronConfig) validate() error {
	for key, spec := range map[string]string{
		"CRON_REMINDER":           c.Reminder,
		"CRON_NO_SHOW":            c.NoShow,
		"CRON_AUTO_SESSION":       c.AutoSession,
		"CRON_SESSION_COMPLETION": c.SessionCompletion,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
