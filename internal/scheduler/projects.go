package scheduler

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/daehee87/fuzzing-bot/internal/types"

	"github.com/shirou/gopsutil/v3/disk"
)

// ListProjects returns the project directories directly under projectsDir,
// skipping hidden entries, plain files and any name in excluded.
func ListProjects(projectsDir string, excluded []string) ([]types.Project, error) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil, fmt.Errorf("list projects in %s: %w", projectsDir, err)
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[name] = struct{}{}
	}

	projects := make([]types.Project, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.IsDir() {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		projects = append(projects, types.Project{Name: name})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})
	return projects, nil
}

// FreeDiskBytes reports the space available to unprivileged users on the
// filesystem holding path.
func FreeDiskBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return usage.Free, nil
}
