package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JobLocker не даёт одной задаче выполняться одновременно на нескольких экземплярах
type JobLocker interface {
	// TryLock возвращает acquired=false, если задачу уже выполняет другой экземпляр
	TryLock(ctx context.Context, job string) (unlock func(), acquired bool, err error)
}

// NoopLocker для запуска в одном экземпляре без Redis
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

const jobLockPrefix = "tutor_ledger:job_lock:"

// Снимаем блокировку только если она всё ещё наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisJobLocker блокировка на SET NX PX с уникальным токеном владельца
type RedisJobLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	token  func() string
	logger *zap.Logger
}

func NewRedisJobLocker(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisJobLocker {
	return &RedisJobLocker{
		client: client,
		ttl:    ttl,
		token:  uuid.NewString,
		logger: logger,
	}
}

func (l *RedisJobLocker) TryLock(ctx context.Context, job string) (func(), bool, error) {
	key := jobLockPrefix + job
	token := l.token()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire job lock %s: %w", job, err)
	}
	if !acquired {
		return nil, false, nil
	}

	unlock := func() {
		// Контекст задачи к этому моменту может быть отменён
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release job lock", zap.String("job", job), zap.Error(err))
		}
	}
	return unlock, true, nil
}
