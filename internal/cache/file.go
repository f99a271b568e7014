package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const filePrefix = ".build_cache_"

// FileStore keeps one file per project under dir, each holding the Unix time
// of the last successful build as a decimal float.
type FileStore struct {
	dir    string
	now    Clock
	logger *zap.Logger
}

func NewFileStore(dir string, now Clock, logger *zap.Logger) *FileStore {
	if now == nil {
		now = time.Now
	}
	return &FileStore{dir: dir, now: now, logger: logger}
}

func (s *FileStore) path(project string) string {
	return filepath.Join(s.dir, filePrefix+project)
}

func (s *FileStore) IsFresh(_ context.Context, project string, ttl time.Duration) bool {
	raw, err := os.ReadFile(s.path(project))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read build cache", zap.String("project", project), zap.Error(err))
		}
		return false
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return false
	}
	ts, err := strconv.ParseFloat(text, 64)
	if err != nil {
		s.logger.Warn("corrupt build cache entry", zap.String("project", project), zap.String("content", text))
		return false
	}
	return fresh(fromUnix(ts), s.now(), ttl)
}

func (s *FileStore) MarkBuilt(_ context.Context, project string) error {
	ts := strconv.FormatFloat(toUnix(s.now()), 'f', 6, 64)
	if err := os.WriteFile(s.path(project), []byte(ts), 0o644); err != nil {
		return fmt.Errorf("write build cache for %s: %w", project, err)
	}
	return nil
}
