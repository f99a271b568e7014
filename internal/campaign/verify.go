package campaign

import (
	"context"
	"fmt"

	"github.com/daehee87/fuzzing-bot/internal/builder"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Verify rebuilds the project named by directive (<project>--<fuzzer>--<poc>),
// downloads the poc and replays it once.
func (c *Campaign) Verify(ctx context.Context, directive string) error {
	req, err := types.ParsePocRequest(directive)
	if err != nil {
		return err
	}

	tracer := c.tracerFactory.NewTracer(ctx, "verification").WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Verifying).WithProject(req.Project).WithFuzzer(req.Fuzzer),
	)
	tracer.Start()
	defer tracer.End()
	ctx = context.WithValue(ctx, telemetry.TracerKey{}, tracer)

	session := c.syncConfig(ctx)
	if err := c.workspace.Refresh(ctx); err != nil {
		c.logger.Warn("Failed to update oss-fuzz checkout, using the existing one", zap.Error(err))
	}

	result := c.builder.Build(ctx, req.Project, session.BuildCacheTTL)
	c.metrics.RecordBuild(string(result.Status))
	if result.Status != builder.Built && result.Status != builder.Cached {
		tracer.SetStatus(codes.Error, "build failed")
		if result.Err == nil {
			return fmt.Errorf("build %s: %s", req.Project, result.Status)
		}
		return fmt.Errorf("build %s: %s: %w", req.Project, result.Status, result.Err)
	}
	if !hasTarget(result.Targets, req.Fuzzer) {
		tracer.SetStatus(codes.Error, "fuzz target not found")
		return fmt.Errorf("fuzz target %s not found in %s", req.Fuzzer, req.Project)
	}

	poc, err := c.coordinator.FetchPoc(ctx, c.identity, req.Name())
	if err != nil {
		tracer.SetStatus(codes.Error, "download failed")
		return fmt.Errorf("download %s: %w", req.Name(), err)
	}

	if err := c.fuzzer.Verify(ctx, req.Project, req.Fuzzer, req.Poc, poc); err != nil {
		tracer.SetStatus(codes.Error, "replay failed")
		return err
	}
	tracer.SetStatus(codes.Ok, "replayed")
	return nil
}

func hasTarget(targets []types.FuzzTarget, name string) bool {
	for _, target := range targets {
		if target.Name == name {
			return true
		}
	}
	return false
}
