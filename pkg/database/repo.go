package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// inserts multiple crash records into the database
func AddCrashes(ctx context.Context, db *gorm.DB, crashes []*Crash) error {
	if db == nil || len(crashes) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(crashes).Error
}

func NewCrash(botID, project, fuzzer, digest, path string, size int) *Crash {
	return &Crash{
		CreatedAt: time.Now(),
		BotID:     botID,
		Project:   project,
		Fuzzer:    fuzzer,
		Digest:    digest,
		Path:      path,
		Size:      size,
	}
}
