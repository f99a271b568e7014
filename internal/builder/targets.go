package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daehee87/fuzzing-bot/internal/types"
)

var (
	excludedPrefixes = []string{"afl-", "jazzer_"}
	excludedNames    = []string{"llvm-symbolizer"}
	archiveSuffixes  = []string{".zip", ".tar", ".tar.gz", ".tgz", ".jar"}
)

func isExcluded(name string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, excluded := range excludedNames {
		if name == excluded {
			return true
		}
	}
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// discoverFuzzTargets lists regular files with an execute bit in the
// project's build output. Python and JVM targets are only executable by
// root, so permission bits are checked instead of access(2).
func (b *Builder) discoverFuzzTargets(project string) ([]types.FuzzTarget, error) {
	return DiscoverFuzzTargets(project, b.helper.OutDir(project))
}

func DiscoverFuzzTargets(project, outDir string) ([]types.FuzzTarget, error) {
	files, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read build output %s: %w", outDir, err)
	}

	var targets []types.FuzzTarget
	for _, file := range files {
		name := file.Name()
		if isExcluded(name) {
			continue
		}
		// follows symlinks like the stat in the helper does
		info, err := os.Stat(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			targets = append(targets, types.FuzzTarget{
				Project: project,
				Name:    name,
				Path:    filepath.Join(outDir, name),
			})
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})
	return targets, nil
}
