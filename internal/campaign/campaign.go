package campaign

import (
	"context"
	"time"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/internal/builder"
	"github.com/daehee87/fuzzing-bot/internal/coordinator"
	"github.com/daehee87/fuzzing-bot/internal/crash"
	"github.com/daehee87/fuzzing-bot/internal/fuzz"
	"github.com/daehee87/fuzzing-bot/internal/scheduler"
	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/metrics"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Coordinator interface {
	Authenticate(ctx context.Context, id types.BotIdentity) error
	SyncConfig(ctx context.Context, id types.BotIdentity, prev types.SessionConfig) (types.SessionConfig, error)
	FetchPoc(ctx context.Context, id types.BotIdentity, name string) ([]byte, error)
}

type Builder interface {
	Build(ctx context.Context, project string, ttl time.Duration) builder.BuildResult
}

type Fuzzer interface {
	Run(ctx context.Context, project, fuzzer string, duration time.Duration) fuzz.RunResult
	Verify(ctx context.Context, project, fuzzer, name string, poc []byte) error
}

type Reporter interface {
	Report(ctx context.Context, id types.BotIdentity, project, fuzzer string, artifacts []types.CrashArtifact) crash.Outcome
}

// Workspace is the corpus checkout and the disk it lives on.
type Workspace interface {
	Refresh(ctx context.Context) error
	Projects() ([]types.Project, error)
	FreeBytes() (uint64, error)
}

type Settings struct {
	BotID                string
	Defaults             types.SessionConfig
	LoopInterval         time.Duration
	DiskQuotaPerProject  uint64
	AllowUnauthenticated bool
}

// Campaign drives the bot. It is used from a single goroutine.
type Campaign struct {
	coordinator   Coordinator
	builder       Builder
	fuzzer        Fuzzer
	reporter      Reporter
	workspace     Workspace
	picker        *scheduler.Picker
	prompter      Prompter
	metrics       *metrics.Collector
	tracerFactory *telemetry.TracerFactory
	logger        *zap.Logger
	settings      Settings

	// state
	identity      types.BotIdentity
	authenticated bool
	session       types.SessionConfig
	pool          []types.Project
}

type Deps struct {
	Coordinator   Coordinator
	Builder       Builder
	Fuzzer        Fuzzer
	Reporter      Reporter
	Workspace     Workspace
	Picker        *scheduler.Picker
	Prompter      Prompter
	Metrics       *metrics.Collector
	TracerFactory *telemetry.TracerFactory
	Logger        *zap.Logger
}

func New(d Deps, s Settings) *Campaign {
	s.Defaults.Source = types.SourceDefault
	return &Campaign{
		coordinator:   d.Coordinator,
		builder:       d.Builder,
		fuzzer:        d.Fuzzer,
		reporter:      d.Reporter,
		workspace:     d.Workspace,
		picker:        d.Picker,
		prompter:      d.Prompter,
		metrics:       d.Metrics,
		tracerFactory: d.TracerFactory,
		logger:        d.Logger.Named("campaign"),
		settings:      s,
		session:       s.Defaults,
	}
}

type CampaignParams struct {
	fx.In

	Config        *config.AppConfig
	Coordinator   *coordinator.Client
	Builder       *builder.Builder
	Fuzzer        *fuzz.Fuzzer
	Reporter      *crash.Reporter
	Runner        toolchain.Runner
	Helper        *toolchain.Helper
	Metrics       *metrics.Collector
	TracerFactory *telemetry.TracerFactory
	Logger        *zap.Logger
}

func NewCampaign(p CampaignParams) *Campaign {
	cfg := p.Config
	return New(Deps{
		Coordinator: p.Coordinator,
		Builder:     p.Builder,
		Fuzzer:      p.Fuzzer,
		Reporter:    p.Reporter,
		Workspace: &ossFuzzWorkspace{
			runner:   p.Runner,
			helper:   p.Helper,
			repo:     cfg.OSSFuzzRepo,
			workDir:  cfg.WorkDir,
			excluded: cfg.Campaign.ExcludedProjects,
		},
		Picker:        scheduler.NewPicker(0),
		Prompter:      NewStdinPrompter(),
		Metrics:       p.Metrics,
		TracerFactory: p.TracerFactory,
		Logger:        p.Logger,
	}, Settings{
		BotID: cfg.BotID,
		Defaults: types.SessionConfig{
			SessionDuration: cfg.Session.SessionDuration,
			BuildCacheTTL:   cfg.Session.BuildCacheTTL,
		},
		LoopInterval:         cfg.Campaign.LoopInterval,
		DiskQuotaPerProject:  cfg.Campaign.DiskQuotaPerProject,
		AllowUnauthenticated: cfg.Campaign.AllowUnauthenticated,
	})
}
