package database

import (
	"context"
	"testing"

	"github.com/daehee87/fuzzing-bot/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptionalConnections(t *testing.T) {
	cfg := &config.AppConfig{}

	db, err := NewDBConnection(DBParams{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, db)

	client, err := NewRedisClient(RedisParams{Config: cfg, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestInvalidRedisURL(t *testing.T) {
	cfg := &config.AppConfig{RedisUrl: "not-a-url"}
	_, err := NewRedisClient(RedisParams{Config: cfg, Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestAddCrashesWithoutLedger(t *testing.T) {
	crash := NewCrash("bot", "zlib", "fuzz_inflate", "abc", "/tmp/abc", 3)
	assert.Equal(t, "zlib", crash.Project)
	assert.Equal(t, 3, crash.Size)
	assert.False(t, crash.CreatedAt.IsZero())

	assert.NoError(t, AddCrashes(context.Background(), nil, []*Crash{crash}))
}
