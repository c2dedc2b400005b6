// Package ratelimit counts actions per key in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config defines rate limiting configuration
type Config struct {
	// Limit is the max calls allowed in one window
	Limit int
	// Window is the length of a counting window
	Window time.Duration
}

// Limiter is implemented by the in-memory and redis backends
type Limiter interface {
	// Allow counts one call for key and reports whether it is within the limit
	Allow(ctx context.Context, key string) (bool, error)
	// Remaining returns how many calls key has left in the current window
	Remaining(ctx context.Context, key string) (int, error)
	// Reset clears the counter for key
	Reset(ctx context.Context, key string) error
}

// Key builds the counter key for an action, preferring the user over the IP
func Key(action string, userID int64, ip string) string {
	if userID != 0 {
		return fmt.Sprintf("%s:user:%d", action, userID)
	}
	return fmt.Sprintf("%s:ip:%s", action, ip)
}

// window is one fixed counting window
type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process. Counters of idle keys are evicted by the LRU.
type MemoryLimiter struct {
	config  Config
	mu      sync.Mutex
	windows *expirable.LRU[string, *window]
	now     func() time.Time
}

const defaultMemoryKeys = 100000

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		windows: expirable.NewLRU[string, *window](defaultMemoryKeys, nil, config.Window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows.Get(key)
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.config.Window)}
		l.windows.Add(key, w)
	}
	w.count++
	return w.count <= l.config.Limit, nil
}

func (l *MemoryLimiter) Remaining(ctx context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows.Peek(key)
	if !ok || !l.now().Before(w.resetAt) {
		return l.config.Limit, nil
	}
	remaining := l.config.Limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows.Remove(key)
	return nil
}
