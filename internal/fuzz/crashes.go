package fuzz

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/daehee87/fuzzing-bot/internal/types"
)

// CollectCrashes reads the non-empty crash files in outDir modified at or
// after since. Older files belong to earlier sessions that were already
// reported or deliberately kept.
func CollectCrashes(outDir, project, fuzzer string, since time.Time) ([]types.CrashArtifact, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", outDir, err)
	}

	var crashes []types.CrashArtifact
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isCrashFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(since) || info.Size() == 0 {
			continue
		}

		path := filepath.Join(outDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read crash %s: %w", path, err)
		}
		if len(data) == 0 {
			continue
		}
		crashes = append(crashes, types.CrashArtifact{
			Project: project,
			Fuzzer:  fuzzer,
			Path:    path,
			Data:    data,
		})
	}

	sort.Slice(crashes, func(i, j int) bool {
		return crashes[i].Path < crashes[j].Path
	})
	return crashes, nil
}
