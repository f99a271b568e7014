package crash

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/internal/coordinator"
	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/database"
	"github.com/daehee87/fuzzing-bot/pkg/mq"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Outcome string

const (
	Acknowledged          Outcome = "acknowledged"
	RejectedByCoordinator Outcome = "rejected"
	ConnectivityFailure   Outcome = "connectivity_failure"
	NothingToReport       Outcome = "nothing_to_report"
)

type Uploader interface {
	Report(ctx context.Context, report types.CampaignReport) error
}

type Remover interface {
	Remove(ctx context.Context, paths ...string) error
}

type EventPublisher interface {
	PublishReport(ctx context.Context, event mq.ReportEvent) error
}

// Reporter uploads the crashes of one session. Acknowledged crashes move
// into the local store; anything else stays where the engine wrote it.
type Reporter struct {
	uploader Uploader
	remover  Remover
	ledger   *gorm.DB
	events   EventPublisher
	logger   *zap.Logger

	crashFolder string
}

type ReporterParams struct {
	fx.In

	Coordinator *coordinator.Client
	Helper      *toolchain.Helper
	Config      *config.AppConfig
	Logger      *zap.Logger
	DB          *gorm.DB      `optional:"true"`
	Publisher   *mq.Publisher `optional:"true"`
}

func NewReporter(p ReporterParams) *Reporter {
	r := New(p.Coordinator, p.Helper, filepath.Join(p.Config.WorkDir, "crashes"), p.Logger)
	r.ledger = p.DB
	if p.Publisher != nil {
		r.events = p.Publisher
	}
	return r
}

func New(uploader Uploader, remover Remover, crashFolder string, logger *zap.Logger) *Reporter {
	return &Reporter{
		uploader:    uploader,
		remover:     remover,
		logger:      logger.Named("crash"),
		crashFolder: crashFolder,
	}
}

func (r *Reporter) Report(ctx context.Context, id types.BotIdentity, project, fuzzer string, artifacts []types.CrashArtifact) Outcome {
	if len(artifacts) == 0 {
		return NothingToReport
	}

	tracer := telemetry.FromContext(ctx).Spawn("reporting crashes").WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Reporting).
			WithProject(project).
			WithFuzzer(fuzzer).
			WithCrashCount(len(artifacts)),
	)
	tracer.Start()
	defer tracer.End()

	report := types.CampaignReport{
		BotID:   id,
		Project: project,
		Fuzzer:  fuzzer,
		Crashes: make([][]byte, 0, len(artifacts)),
	}
	for _, artifact := range artifacts {
		report.Crashes = append(report.Crashes, artifact.Data)
	}

	if err := r.uploader.Report(ctx, report); err != nil {
		if coordinator.IsRejection(err) {
			r.logger.Warn("Coordinator rejected crash report, keeping crashes in place",
				zap.String("project", project), zap.String("fuzzer", fuzzer), zap.Error(err))
			tracer.SetStatus(codes.Error, "rejected")
			return RejectedByCoordinator
		}
		r.logger.Warn("Failed to send crash report, keeping crashes in place",
			zap.String("project", project), zap.String("fuzzer", fuzzer), zap.Error(err))
		tracer.SetStatus(codes.Error, "connectivity failure")
		return ConnectivityFailure
	}

	r.logger.Info("Crash report acknowledged",
		zap.String("project", project),
		zap.String("fuzzer", fuzzer),
		zap.Int("crash_count", len(artifacts)))
	tracer.SetStatus(codes.Ok, "acknowledged")

	r.archive(ctx, id, project, fuzzer, artifacts)
	return Acknowledged
}

// archive moves acknowledged crashes into the local store and records them.
// Failures here are logged only: the coordinator already has the data.
func (r *Reporter) archive(ctx context.Context, id types.BotIdentity, project, fuzzer string, artifacts []types.CrashArtifact) {
	var (
		stored  []*database.Crash
		digests []string
		moved   []string
	)
	for _, artifact := range artifacts {
		crashPath, digest, err := r.store(artifact)
		if err != nil {
			r.logger.Error("Failed to store crash", zap.String("file", artifact.Path), zap.Error(err))
			continue
		}
		moved = append(moved, artifact.Path)
		digests = append(digests, digest)
		stored = append(stored, database.NewCrash(id.String(), project, fuzzer, digest, crashPath, len(artifact.Data)))
	}

	if err := r.remover.Remove(ctx, moved...); err != nil {
		r.logger.Warn("Failed to remove reported crashes", zap.Strings("files", moved), zap.Error(err))
	}

	if r.ledger != nil {
		if err := database.AddCrashes(ctx, r.ledger, stored); err != nil {
			r.logger.Warn("Failed to record crashes", zap.Error(err))
		}
	}

	if r.events != nil {
		event := mq.ReportEvent{
			BotID:      id.String(),
			Project:    project,
			Fuzzer:     fuzzer,
			CrashCount: len(artifacts),
			Digests:    digests,
			ReportedAt: time.Now().UTC(),
		}
		if err := r.events.PublishReport(ctx, event); err != nil {
			r.logger.Warn("Failed to publish report event", zap.Error(err))
		}
	}
}

// store writes the crash as <crashFolder>/<project>/<fuzzer>/<md5>, so the
// same input found twice is kept once.
func (r *Reporter) store(artifact types.CrashArtifact) (string, string, error) {
	crashStore := filepath.Join(r.crashFolder, artifact.Project, artifact.Fuzzer)
	if err := os.MkdirAll(crashStore, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create crash store directory: %w", err)
	}

	crashMd5 := md5.Sum(artifact.Data)
	digest := hex.EncodeToString(crashMd5[:])
	crashPath := filepath.Join(crashStore, digest)
	if err := os.WriteFile(crashPath, artifact.Data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write crash file: %w", err)
	}
	return crashPath, digest, nil
}
