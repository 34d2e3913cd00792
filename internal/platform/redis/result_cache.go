package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/psyche-api/internal/config"
	"github.com/phrazzld/psyche-api/internal/domain"
	"github.com/phrazzld/psyche-api/internal/platform/logger"
	"github.com/phrazzld/psyche-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

const resultKeyPrefix = "psyche:result:"

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.CacheConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// ResultCache implements store.ResultCache.
type ResultCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// Ensure ResultCache implements store.ResultCache interface
var _ store.ResultCache = (*ResultCache)(nil)

// NewResultCache creates a cache that keeps results for ttl.
// If logger is nil, a default logger will be used.
func NewResultCache(client goredis.Cmdable, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "result_cache")),
	}
}

// ResultKey returns the Redis key for a session's result.
func ResultKey(sessionID uuid.UUID) string {
	return resultKeyPrefix + sessionID.String()
}

// Get implements store.ResultCache.Get
func (c *ResultCache) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Result, error) {
	data, err := c.client.Get(ctx, ResultKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrResultNotFound
		}
		return nil, store.NewStoreError("result", "get", "redis read failed", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("discarding undecodable cached result",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()))
		return nil, store.ErrResultNotFound
	}
	return &result, nil
}

// Set implements store.ResultCache.Set
func (c *ResultCache) Set(ctx context.Context, sessionID uuid.UUID, result *domain.Result) error {
	if result == nil {
		return c.Delete(ctx, sessionID)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return store.NewStoreError("result", "set", "failed to encode result", err)
	}
	if err := c.client.Set(ctx, ResultKey(sessionID), data, c.ttl).Err(); err != nil {
		return store.NewStoreError("result", "set", "redis write failed", err)
	}
	return nil
}

// Delete implements store.ResultCache.Delete
func (c *ResultCache) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := c.client.Del(ctx, ResultKey(sessionID)).Err(); err != nil {
		return store.NewStoreError("result", "delete", "redis delete failed", err)
	}
	return nil
}
