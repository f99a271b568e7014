package campaign

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/daehee87/fuzzing-bot/internal/builder"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var ErrNothingBuilt = errors.New("no project in the pool produced fuzz targets")

// Run repeats Iterate until ctx is cancelled. Cancellation is only observed
// while sleeping between iterations; a running build or fuzz session is
// always allowed to finish.
func (c *Campaign) Run(ctx context.Context) error {
	for {
		if err := c.Iterate(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("Iteration ended early", zap.Error(err))
		}

		timer := time.NewTimer(c.settings.LoopInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("Campaign stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Iterate runs one select, build, fuzz and report round.
func (c *Campaign) Iterate(ctx context.Context) error {
	iterationID := uuid.NewString()
	tracer := c.tracerFactory.NewTracer(ctx, "campaign iteration").WithAttributes(
		telemetry.EmptySpanAttributes().WithIteration(iterationID),
	)
	tracer.Start()
	defer tracer.End()
	ctx = context.WithValue(ctx, telemetry.TracerKey{}, tracer)
	logger := c.logger.With(zap.String("iteration", iterationID))

	session := c.syncConfig(ctx)

	if err := c.workspace.Refresh(ctx); err != nil {
		logger.Warn("Failed to update oss-fuzz checkout, using the existing one", zap.Error(err))
	}
	if err := c.ensurePool(); err != nil {
		tracer.SetStatus(codes.Error, "no project pool")
		return err
	}

	built, err := c.buildAny(ctx, session, logger)
	if err != nil {
		tracer.SetStatus(codes.Error, "nothing built")
		return err
	}

	target, err := c.picker.ChooseTarget(built.Targets)
	if err != nil {
		tracer.SetStatus(codes.Error, "no fuzz targets")
		return fmt.Errorf("%s: %w", built.Project, err)
	}

	logger.Info("Running fuzz target",
		zap.String("project", target.Project),
		zap.String("fuzzer", target.Name),
		zap.Duration("duration", session.SessionDuration),
		zap.String("config", string(session.Source)))
	run := c.fuzzer.Run(ctx, target.Project, target.Name, session.SessionDuration)
	if run.Err != nil {
		logger.Info("Fuzzer exited with error", zap.String("fuzzer", target.Name), zap.Error(run.Err))
	}
	c.metrics.RecordRun(run.Elapsed.Seconds(), len(run.Crashes))

	outcome := c.reporter.Report(ctx, c.identity, target.Project, target.Name, run.Crashes)
	c.metrics.RecordReport(string(outcome))
	tracer.WithAttributes(telemetry.EmptySpanAttributes().
		WithProject(target.Project).
		WithFuzzer(target.Name).
		WithCrashCount(len(run.Crashes)))
	tracer.SetStatus(codes.Ok, string(outcome))
	return nil
}

// ensurePool computes the project pool once per process.
func (c *Campaign) ensurePool() error {
	if len(c.pool) > 0 {
		return nil
	}

	projects, err := c.workspace.Projects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	free, err := c.workspace.FreeBytes()
	if err != nil {
		c.logger.Warn("Failed to read free disk space, using a single project", zap.Error(err))
		free = 0
	}

	c.pool = c.picker.NewPool(projects, free, c.settings.DiskQuotaPerProject)
	if len(c.pool) == 0 {
		return errors.New("no projects found in oss-fuzz checkout")
	}
	c.metrics.SetPoolSize(len(c.pool))

	names := make([]string, 0, len(c.pool))
	for _, p := range c.pool {
		names = append(names, p.Name)
	}
	c.logger.Info("Project pool ready",
		zap.Int("available", len(projects)),
		zap.Uint64("free_bytes", free),
		zap.Strings("pool", names))
	return nil
}

// buildAny picks projects until one yields fuzz targets, trying each pool
// member at most once. A project without targets is skipped immediately,
// without waiting for the next iteration.
func (c *Campaign) buildAny(ctx context.Context, session types.SessionConfig, logger *zap.Logger) (builder.BuildResult, error) {
	candidates := append([]types.Project(nil), c.pool...)
	for len(candidates) > 0 {
		project, err := c.picker.ChooseProject(candidates)
		if err != nil {
			return builder.BuildResult{}, err
		}
		candidates = slices.DeleteFunc(candidates, func(p types.Project) bool { return p == project })

		result := c.builder.Build(ctx, project.Name, session.BuildCacheTTL)
		c.metrics.RecordBuild(string(result.Status))
		switch result.Status {
		case builder.Built, builder.Cached:
			return result, nil
		default:
			logger.Warn("Skipping project",
				zap.String("project", project.Name),
				zap.String("status", string(result.Status)),
				zap.Error(result.Err))
		}
	}
	return builder.BuildResult{}, ErrNothingBuilt
}
