package cache

import (
	"github.com/daehee87/fuzzing-bot/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type StoreParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
	Redis  *redis.Client `optional:"true"`
}

func NewStore(p StoreParams) Store {
	logger := p.Logger.Named("cache")
	if p.Redis != nil {
		logger.Info("Using redis build cache")
		return NewRedisStore(p.Redis, nil, logger)
	}
	return NewFileStore(p.Config.WorkDir, nil, logger)
}
