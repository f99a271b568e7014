// Package toolchain runs the external programs the bot depends on: the
// OSS-Fuzz helper script, git and a handful of privileged file operations.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/daehee87/fuzzing-bot/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Cmd describes one external invocation. Dir is always explicit; the bot
// never changes its own working directory.
type Cmd struct {
	Dir        string
	Name       string
	Args       []string
	Privileged bool
	Stdin      io.Reader // nil means no input
	Stdout     io.Writer // nil means the process stdout
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Runner interface {
	Run(ctx context.Context, cmd Cmd) error
}

// ExecRunner runs commands on the host. Privileged commands go through
// non-interactive sudo once Authorize has cached the credentials.
type ExecRunner struct {
	useSudo bool
	logger  *zap.Logger
}

type ExecRunnerParams struct {
	fx.In

	Config *config.AppConfig
	Logger *zap.Logger
}

func NewExecRunner(p ExecRunnerParams) *ExecRunner {
	return &ExecRunner{
		useSudo: p.Config.Campaign.UseSudo,
		logger:  p.Logger.Named("toolchain"),
	}
}

// Authorize asks for the sudo password up front so later privileged commands
// never prompt.
func (r *ExecRunner) Authorize(ctx context.Context) error {
	if !r.useSudo {
		return nil
	}
	cmd := exec.CommandContext(ctx, "sudo", "-v")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sudo authorization: %w", err)
	}
	return nil
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	name, args := c.Name, c.Args
	if c.Privileged && r.useSudo {
		name, args = "sudo", append([]string{"-n", c.Name}, c.Args...)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	cmd.Env = filterOtelEnv(os.Environ()) // Filter out OpenTelemetry related env vars
	cmd.Stdin = c.Stdin
	cmd.Stdout = os.Stdout
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	cmd.Stderr = os.Stderr

	r.logger.Debug("Running command", zap.String("command", cmd.String()), zap.String("dir", c.Dir))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.String(), err)
	}
	return nil
}

// get rid of all environment variables that are related to OpenTelemetry
func filterOtelEnv(env []string) []string {
	var filtered []string
	for _, e := range env {
		if strings.HasPrefix(e, "OTEL_") || strings.HasPrefix(e, "OTLP_") {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}
