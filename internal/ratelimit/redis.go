package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// incrWindow opens the window on the first call only, so later calls do not extend it
var incrWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter shares counters between instances through redis
type RedisLimiter struct {
	redis  *redis.Client
	config Config
	prefix string
	logger *logrus.Logger
}

// NewRedisLimiter creates a new Redis-backed rate limiter
func NewRedisLimiter(client *redis.Client, config Config, prefix string, logger *logrus.Logger) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{
		redis:  client,
		config: config,
		prefix: prefix,
		logger: logger,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + key
}

// Allow fails open: when redis is unreachable the call is allowed and a warning logged
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := incrWindow.Run(ctx, l.redis, []string{l.key(key)}, l.config.Window.Milliseconds()).Int64()
	if err != nil {
		l.logger.WithError(err).WithField("key", key).Warn("Rate limiter unavailable, allowing call")
		return true, nil
	}
	return count <= int64(l.config.Limit), nil
}

func (l *RedisLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(key)).Int()
	if err == redis.Nil {
		return l.config.Limit, nil
	} else if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	remaining := l.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.key(key)).Err()
}
