package campaign

import (
	"context"

	"github.com/daehee87/fuzzing-bot/internal/scheduler"
	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/types"
)

type ossFuzzWorkspace struct {
	runner   toolchain.Runner
	helper   *toolchain.Helper
	repo     string
	workDir  string
	excluded []string
}

func (w *ossFuzzWorkspace) Refresh(ctx context.Context) error {
	return toolchain.Checkout(ctx, w.runner, w.repo, w.helper.Root())
}

func (w *ossFuzzWorkspace) Projects() ([]types.Project, error) {
	return scheduler.ListProjects(w.helper.ProjectsDir(), w.excluded)
}

func (w *ossFuzzWorkspace) FreeBytes() (uint64, error) {
	return scheduler.FreeDiskBytes(w.workDir)
}
