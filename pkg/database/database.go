package database

import (
	"github.com/daehee87/fuzzing-bot/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DBParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
}

// NewDBConnection returns nil when no database is configured. The crash
// ledger is optional and callers must check for nil.
func NewDBConnection(p DBParams) (*gorm.DB, error) {
	if p.Config.DatabaseURL == "" {
		p.Logger.Debug("DATABASE_URL not set, crash ledger disabled")
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(p.Config.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		p.Logger.Error("failed to connect database", zap.Error(err))
		return nil, err
	}
	if err := db.AutoMigrate(&Crash{}); err != nil {
		p.Logger.Error("failed to migrate crash ledger", zap.Error(err))
		return nil, err
	}
	p.Logger.Debug("connected to database")
	return db, nil
}
