package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("plan week lock not acquired")
)

// Locker serialises weekly plan generation: concurrent generation requests
// for the same week must not interleave, so the whole run executes under a
// per-week lock.
type Locker interface {
	WithWeekLock(ctx context.Context, weekStart time.Time, fn func(ctx context.Context) error) error
}

type redisWeekLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWeekLocker creates a locker that uses a per week Redis key.
func NewRedisWeekLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisWeekLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisWeekLocker) WithWeekLock(ctx context.Context, weekStart time.Time, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:planweek:%s", weekStart.Format("2006-01-02"))
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire week lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisWeekLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release week lock: %w", err)
	}
	return nil
}
