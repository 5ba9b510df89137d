package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskgate/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter answers whether a client may make another request.
type RateLimiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

func newRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) RateLimiter {
	if cfg.Store == "redis" {
		return newRedisLimiter(cfg, logger)
	}
	return newMemoryLimiter(cfg)
}

// memoryLimiter is a fixed-window counter per client.
type memoryLimiter struct {
	mu       sync.Mutex
	clients  map[string]*windowCount
	requests int
	window   time.Duration
}

type windowCount struct {
	count   int
	started time.Time
}

func newMemoryLimiter(cfg *config.RateLimitConfig) *memoryLimiter {
	return &memoryLimiter{
		clients:  make(map[string]*windowCount),
		requests: cfg.Requests,
		window:   cfg.Window,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, client string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.clients[client]
	if !ok || now.Sub(w.started) > l.window {
		l.clients[client] = &windowCount{count: 1, started: now}
		return true, nil
	}

	if w.count >= l.requests {
		return false, nil
	}
	w.count++
	return true, nil
}

// redisLimiter shares the window across gateway instances.
type redisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	logger   *zap.Logger
}

func newRedisLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *redisLimiter {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 10,
	})

	return &redisLimiter{
		client:   rc,
		requests: cfg.Requests,
		window:   cfg.Window,
		logger:   logger,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	key := fmt.Sprintf("taskgate:ratelimit:%s", client)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return count <= int64(l.requests), nil
}
