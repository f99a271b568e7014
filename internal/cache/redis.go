package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "fuzzbot:build_cache:"

// RedisStore shares build timestamps between bots that use the same build
// output directory.
type RedisStore struct {
	client *redis.Client
	now    Clock
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, now Clock, logger *zap.Logger) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, now: now, logger: logger}
}

func (s *RedisStore) IsFresh(ctx context.Context, project string, ttl time.Duration) bool {
	raw, err := s.client.Get(ctx, redisKeyPrefix+project).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to read build cache", zap.String("project", project), zap.Error(err))
		}
		return false
	}

	ts, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Warn("corrupt build cache entry", zap.String("project", project), zap.String("content", raw))
		return false
	}
	return fresh(fromUnix(ts), s.now(), ttl)
}

func (s *RedisStore) MarkBuilt(ctx context.Context, project string) error {
	ts := strconv.FormatFloat(toUnix(s.now()), 'f', 6, 64)
	if err := s.client.Set(ctx, redisKeyPrefix+project, ts, 0).Err(); err != nil {
		return fmt.Errorf("write build cache for %s: %w", project, err)
	}
	return nil
}
