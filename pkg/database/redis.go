package database

import (
	"context"
	"fmt"
	"time"

	"github.com/daehee87/fuzzing-bot/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

type RedisParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
}

// NewRedisClient returns nil when REDIS_URL is not set. Bots then keep their
// build cache in the working directory.
func NewRedisClient(p RedisParams) (*redis.Client, error) {
	if p.Config.RedisUrl == "" {
		p.Logger.Debug("REDIS_URL not set, using file build cache")
		return nil, nil
	}

	options, err := redis.ParseURL(p.Config.RedisUrl)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", options.Addr, err)
	}

	p.Logger.Info("Sharing build cache through Redis", zap.String("addr", options.Addr))
	return client, nil
}
