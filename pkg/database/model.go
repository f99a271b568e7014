package database

import "time"

// Crash represents a record in the public.crashes table. One row per
// acknowledged crash artifact.
type Crash struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
	BotID     string    `gorm:"column:bot_id;not null"`
	Project   string    `gorm:"column:project;not null;index"`
	Fuzzer    string    `gorm:"column:fuzzer;not null"`
	Digest    string    `gorm:"column:digest;not null;index"`
	Path      string    `gorm:"column:path;not null"`
	Size      int       `gorm:"column:size"`
}
