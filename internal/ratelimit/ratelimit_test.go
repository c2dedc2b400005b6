package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "createUser:user:42", Key("createUser", 42, "10.0.0.1"))
	assert.Equal(t, "createUser:ip:10.0.0.1", Key("createUser", 0, "10.0.0.1"))
}

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(Config{Limit: 60, Window: time.Hour})

	for i := 1; i <= 60; i++ {
		ok, err := l.Allow(ctx, "createUser:ip:1.2.3.4")
		require.NoError(t, err)
		require.True(t, ok, "call %d should pass", i)
	}

	ok, err := l.Allow(ctx, "createUser:ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "61st call is rejected")

	remaining, err := l.Remaining(ctx, "createUser:ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	ok, err = l.Allow(ctx, "createUser:ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok, "other keys are independent")
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(Config{Limit: 2, Window: time.Hour})
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow(ctx, "k")
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "k")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)

	remaining, _ := l.Remaining(ctx, "k")
	assert.Equal(t, 1, remaining)

	require.NoError(t, l.Reset(ctx, "k"))
	remaining, _ = l.Remaining(ctx, "k")
	assert.Equal(t, 2, remaining)
}

func newRedisLimiter(t *testing.T, cfg Config) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRedisLimiter(client, cfg, "test:", logger), mr
}

func TestRedisLimiter(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, Config{Limit: 3, Window: time.Hour})

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "createUser:user:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "createUser:user:1")
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := l.Remaining(ctx, "createUser:user:1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.True(t, mr.Exists("test:createUser:user:1"))
	assert.Equal(t, time.Hour, mr.TTL("test:createUser:user:1"))

	mr.FastForward(time.Hour + time.Second)
	ok, err = l.Allow(ctx, "createUser:user:1")
	require.NoError(t, err)
	assert.True(t, ok, "window expired")

	require.NoError(t, l.Reset(ctx, "createUser:user:1"))
	remaining, err = l.Remaining(ctx, "createUser:user:1")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestRedisLimiterWindowNotExtended(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, Config{Limit: 10, Window: time.Minute})

	_, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(30 * time.Second)
	_, err = l.Allow(ctx, "k")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, mr.TTL("test:k"))
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	l := NewRedisLimiter(client, Config{Limit: 1, Window: time.Minute}, "", logger)
	mr.Close()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
