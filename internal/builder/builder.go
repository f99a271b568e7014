package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/internal/cache"
	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Status string

const (
	Built     Status = "built"      // image and fuzzers rebuilt, targets found
	Cached    Status = "cached"     // build skipped, targets found
	Empty     Status = "empty"      // no runnable targets
	ToolError Status = "tool_error" // helper.py failed
)

type BuildResult struct {
	Project   string
	Status    Status
	Sanitizer string
	Targets   []types.FuzzTarget
	Err       error
}

type Builder struct {
	helper           *toolchain.Helper
	cache            cache.Store
	logger           *zap.Logger
	defaultSanitizer string
}

type BuilderParams struct {
	fx.In

	Helper *toolchain.Helper
	Cache  cache.Store
	Config *config.AppConfig
	Logger *zap.Logger
}

func NewBuilder(p BuilderParams) *Builder {
	return New(p.Helper, p.Cache, p.Config.Campaign.Sanitizer, p.Logger)
}

func New(helper *toolchain.Helper, store cache.Store, sanitizer string, logger *zap.Logger) *Builder {
	return &Builder{
		helper:           helper,
		cache:            store,
		logger:           logger.Named("builder"),
		defaultSanitizer: sanitizer,
	}
}

// Build makes sure the project's fuzz targets exist and returns them. A fresh
// cache entry skips the image and fuzzer steps, but targets are always read
// back from the build output. Failures are reported through the result.
func (b *Builder) Build(ctx context.Context, project string, ttl time.Duration) BuildResult {
	tracer := telemetry.FromContext(ctx).Spawn(fmt.Sprintf("building %s", project)).WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Building).WithProject(project),
	)
	tracer.Start()
	defer tracer.End()

	if b.cache.IsFresh(ctx, project, ttl) {
		targets, err := b.discoverFuzzTargets(project)
		if err == nil && len(targets) > 0 {
			b.logger.Info("Using cached build", zap.String("project", project), zap.Int("targets", len(targets)))
			tracer.SetStatus(codes.Ok, "cached")
			return BuildResult{Project: project, Status: Cached, Targets: targets}
		}
		// the output was cleaned since the last build
		b.logger.Warn("Cached build has no fuzz targets, rebuilding", zap.String("project", project))
	}

	sanitizer := b.sanitizerFor(project)
	result := BuildResult{Project: project, Sanitizer: sanitizer}
	tracer.WithAttributes(telemetry.EmptySpanAttributes().WithSanitizer(sanitizer))

	if err := b.helper.BuildImage(ctx, project); err != nil {
		b.logger.Error("Failed to build Docker image", zap.String("project", project), zap.Error(err))
		tracer.SetStatus(codes.Error, "Failed to build Docker image")
		result.Status, result.Err = ToolError, err
		return result
	}
	if err := b.helper.BuildFuzzers(ctx, project, sanitizer); err != nil {
		b.logger.Error("Failed to build fuzzers", zap.String("project", project), zap.Error(err))
		tracer.SetStatus(codes.Error, "Failed to build fuzzers")
		result.Status, result.Err = ToolError, err
		return result
	}
	if err := b.cache.MarkBuilt(ctx, project); err != nil {
		b.logger.Warn("Failed to record build", zap.String("project", project), zap.Error(err))
	}

	targets, err := b.discoverFuzzTargets(project)
	if err != nil || len(targets) == 0 {
		b.logger.Warn("No fuzz targets after build", zap.String("project", project), zap.Error(err))
		tracer.SetStatus(codes.Error, "no fuzz targets")
		result.Status, result.Err = Empty, err
		return result
	}

	for _, target := range targets {
		b.logger.Info("build OK", zap.String("project", project), zap.String("fuzzer", target.Name))
	}
	tracer.SetStatus(codes.Ok, "built")
	result.Status, result.Targets = Built, targets
	return result
}
