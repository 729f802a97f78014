// Package cache holds the per-owner board overview caches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/taskmaster/kanban/internal/domain/entities"
	"github.com/taskmaster/kanban/internal/infrastructure/config"
	"github.com/taskmaster/kanban/internal/infrastructure/logger"
	"github.com/taskmaster/kanban/internal/ports"
)

const defaultTTL = 5 * time.Minute

// Connect opens a redis client, retrying the initial ping with exponential backoff.
func Connect(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	const maxRetries = 5
	retryDelay := 500 * time.Millisecond

	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.GetAddr(),
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Infow("Redis connected", "addr", cfg.GetAddr(), "attempt", attempt)
			return client, nil
		}
		client.Close()

		log.Warnw("Redis connection failed", "addr", cfg.GetAddr(), "attempt", attempt, "error", err)
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect to redis after %d attempts", maxRetries)
}

// RedisBoardCache stores each owner's board overview as one JSON value.
// Every failure is logged and reported as a miss.
type RedisBoardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisBoardCache creates a board cache on top of client
func NewRedisBoardCache(client *redis.Client, ttl time.Duration, log *logger.Logger) ports.BoardCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisBoardCache{
		client: client,
		ttl:    ttl,
		logger: log.WithComponent("board_cache"),
	}
}

// Ping reports whether redis is reachable
func (c *RedisBoardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func boardsKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("kanban:boards:%s", ownerID)
}

func (c *RedisBoardCache) GetBoards(ctx context.Context, ownerID uuid.UUID) ([]*entities.Board, bool) {
	raw, err := c.client.Get(ctx, boardsKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warnw("Board cache read failed", "owner_id", ownerID, "error", err)
		return nil, false
	}

	var boards []*entities.Board
	if err := json.Unmarshal(raw, &boards); err != nil {
		c.logger.Warnw("Board cache entry is corrupt", "owner_id", ownerID, "error", err)
		return nil, false
	}
	return boards, true
}

func (c *RedisBoardCache) SetBoards(ctx context.Context, ownerID uuid.UUID, boards []*entities.Board) {
	raw, err := json.Marshal(boards)
	if err != nil {
		c.logger.Warnw("Board cache encode failed", "owner_id", ownerID, "error", err)
		return
	}
	if err := c.client.Set(ctx, boardsKey(ownerID), raw, c.ttl).Err(); err != nil {
		c.logger.Warnw("Board cache write failed", "owner_id", ownerID, "error", err)
	}
}

func (c *RedisBoardCache) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	if err := c.client.Del(ctx, boardsKey(ownerID)).Err(); err != nil {
		c.logger.Warnw("Board cache invalidation failed", "owner_id", ownerID, "error", err)
	}
}
