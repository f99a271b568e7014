package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/daehee87/fuzzing-bot/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Helper wraps infra/helper.py of an OSS-Fuzz checkout. Build output is owned
// by root, so everything touching it is privileged.
type Helper struct {
	runner     Runner
	ossFuzzDir string
	logger     *zap.Logger
}

type HelperParams struct {
	fx.In

	Runner Runner
	Config *config.AppConfig
	Logger *zap.Logger
}

func NewHelper(p HelperParams) *Helper {
	return New(p.Runner, p.Config.OSSFuzzDir, p.Logger)
}

func New(runner Runner, ossFuzzDir string, logger *zap.Logger) *Helper {
	return &Helper{runner: runner, ossFuzzDir: ossFuzzDir, logger: logger.Named("helper")}
}

func (h *Helper) Root() string {
	return h.ossFuzzDir
}

func (h *Helper) ProjectsDir() string {
	return filepath.Join(h.ossFuzzDir, "projects")
}

func (h *Helper) ProjectDir(project string) string {
	return filepath.Join(h.ossFuzzDir, "projects", project)
}

func (h *Helper) OutDir(project string) string {
	return filepath.Join(h.ossFuzzDir, "build", "out", project)
}

func (h *Helper) script(ctx context.Context, stdin io.Reader, args ...string) error {
	return h.runner.Run(ctx, Cmd{
		Dir:        h.ossFuzzDir,
		Name:       "python3",
		Args:       append([]string{filepath.Join("infra", "helper.py")}, args...),
		Privileged: true,
		Stdin:      stdin,
	})
}

func (h *Helper) BuildImage(ctx context.Context, project string) error {
	h.logger.Info("Building Docker image", zap.String("project", project))
	// answers the "pull latest base images?" prompt
	if err := h.script(ctx, strings.NewReader("y\n"), "build_image", project); err != nil {
		return fmt.Errorf("build image: %w", err)
	}
	return nil
}

func (h *Helper) BuildFuzzers(ctx context.Context, project, sanitizer string) error {
	h.logger.Info("Building fuzzers", zap.String("project", project), zap.String("sanitizer", sanitizer))
	if err := h.script(ctx, nil, "build_fuzzers", "--sanitizer", sanitizer, project); err != nil {
		return fmt.Errorf("build fuzzers: %w", err)
	}
	return nil
}

// RunFuzzer runs one fuzz target. Relative paths in fuzzerArgs resolve
// against the project's build output directory inside the container.
func (h *Helper) RunFuzzer(ctx context.Context, project, fuzzer string, fuzzerArgs ...string) error {
	args := append([]string{"run_fuzzer", project, fuzzer}, fuzzerArgs...)
	if err := h.script(ctx, nil, args...); err != nil {
		return fmt.Errorf("run fuzzer: %w", err)
	}
	return nil
}

func (h *Helper) MkdirAll(ctx context.Context, dir string) error {
	return h.runner.Run(ctx, Cmd{Dir: h.ossFuzzDir, Name: "mkdir", Args: []string{"-p", dir}, Privileged: true})
}

func (h *Helper) Unzip(ctx context.Context, archive, dest string) error {
	return h.runner.Run(ctx, Cmd{
		Dir:        h.ossFuzzDir,
		Name:       "unzip",
		Args:       []string{"-o", "-q", archive, "-d", dest},
		Privileged: true,
	})
}

func (h *Helper) WriteFile(ctx context.Context, path string, data []byte) error {
	return h.runner.Run(ctx, Cmd{
		Dir:        h.ossFuzzDir,
		Name:       "tee",
		Args:       []string{path},
		Privileged: true,
		Stdin:      bytes.NewReader(data),
		Stdout:     io.Discard,
	})
}

func (h *Helper) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return h.runner.Run(ctx, Cmd{
		Dir:        h.ossFuzzDir,
		Name:       "rm",
		Args:       append([]string{"-f"}, paths...),
		Privileged: true,
	})
}

// RemoveAll deletes a directory tree written by a privileged tool.
func (h *Helper) RemoveAll(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	return h.runner.Run(ctx, Cmd{
		Dir:        h.ossFuzzDir,
		Name:       "rm",
		Args:       []string{"-rf", dir},
		Privileged: true,
	})
}
