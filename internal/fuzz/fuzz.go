package fuzz

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/telemetry"
	"github.com/daehee87/fuzzing-bot/pkg/watchdog"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// file name prefixes libFuzzer uses for the inputs it saves
var crashPrefixes = []string{"crash-", "leak-", "timeout-", "oom-"}

type RunResult struct {
	Project string
	Fuzzer  string
	Started time.Time
	Elapsed time.Duration
	Crashes []types.CrashArtifact
	Err     error // the engine exiting non-zero is normal after a crash
}

type Fuzzer struct {
	helper    *toolchain.Helper
	watchdogs *watchdog.WatchDogFactory
	logger    *zap.Logger
	now       func() time.Time
}

type FuzzerParams struct {
	fx.In

	Helper    *toolchain.Helper
	WatchDogs *watchdog.WatchDogFactory
	Logger    *zap.Logger
}

func NewFuzzer(p FuzzerParams) *Fuzzer {
	return New(p.Helper, p.WatchDogs, p.Logger)
}

func New(helper *toolchain.Helper, watchdogs *watchdog.WatchDogFactory, logger *zap.Logger) *Fuzzer {
	return &Fuzzer{
		helper:    helper,
		watchdogs: watchdogs,
		logger:    logger.Named("fuzz"),
		now:       time.Now,
	}
}

func corpusDirName(fuzzer string) string {
	return fuzzer + "_corpus"
}

// PrepareCorpus creates <out>/<fuzzer>_corpus, seeding it from
// <fuzzer>_seed_corpus.zip when one was built. An existing corpus is left
// alone.
func (f *Fuzzer) PrepareCorpus(ctx context.Context, project, fuzzer string) error {
	outDir := f.helper.OutDir(project)
	corpusDir := filepath.Join(outDir, corpusDirName(fuzzer))
	if _, err := os.Stat(corpusDir); err == nil {
		return nil
	}

	seedZip := filepath.Join(outDir, fuzzer+"_seed_corpus.zip")
	if _, err := os.Stat(seedZip); err == nil {
		f.logger.Info("Extracting seed corpus", zap.String("project", project), zap.String("fuzzer", fuzzer))
		if err := f.helper.Unzip(ctx, seedZip, corpusDir); err != nil {
			// a partial corpus would stop later runs from extracting again
			if rmErr := f.helper.RemoveAll(ctx, corpusDir); rmErr != nil {
				f.logger.Warn("Failed to remove partial corpus", zap.String("dir", corpusDir), zap.Error(rmErr))
			}
			return fmt.Errorf("extract seed corpus: %w", err)
		}
		return nil
	}

	if err := f.helper.MkdirAll(ctx, corpusDir); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}
	return nil
}

// Run fuzzes one target for duration and collects the crash inputs the
// engine saved during that time.
func (f *Fuzzer) Run(ctx context.Context, project, fuzzer string, duration time.Duration) RunResult {
	tracer := telemetry.FromContext(ctx).Spawn(fmt.Sprintf("fuzzing %s", fuzzer)).WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Fuzzing).WithProject(project).WithFuzzer(fuzzer),
	)
	tracer.Start()
	defer tracer.End()

	result := RunResult{Project: project, Fuzzer: fuzzer}

	if err := f.PrepareCorpus(ctx, project, fuzzer); err != nil {
		// the engine still runs without a corpus directory
		f.logger.Warn("Failed to prepare corpus", zap.String("fuzzer", fuzzer), zap.Error(err))
	}

	stopWatching := f.watch(ctx, tracer, project, fuzzer)

	// filesystem timestamps may have coarser resolution than the clock
	result.Started = f.now().Truncate(time.Second)
	f.logger.Info("Running fuzzer",
		zap.String("project", project),
		zap.String("fuzzer", fuzzer),
		zap.Duration("duration", duration))
	result.Err = f.helper.RunFuzzer(ctx, project, fuzzer,
		fmt.Sprintf("-max_total_time=%d", maxTotalTime(duration)),
		corpusDirName(fuzzer),
	)
	result.Elapsed = f.now().Sub(result.Started)
	stopWatching()

	crashes, err := CollectCrashes(f.helper.OutDir(project), project, fuzzer, result.Started)
	if err != nil {
		f.logger.Error("Failed to collect crashes", zap.String("fuzzer", fuzzer), zap.Error(err))
		tracer.SetStatus(codes.Error, "failed to collect crashes")
		if result.Err == nil {
			result.Err = err
		}
		return result
	}
	result.Crashes = crashes

	tracer.WithAttributes(telemetry.EmptySpanAttributes().WithCrashCount(len(crashes)))
	tracer.SetStatus(codes.Ok, "fuzzing finished")
	f.logger.Info("Fuzzer finished",
		zap.String("fuzzer", fuzzer),
		zap.Int("crashes", len(crashes)),
		zap.Duration("elapsed", result.Elapsed))
	return result
}

// watch logs crash files as the engine writes them. The returned func stops
// the watchdog and waits for it.
func (f *Fuzzer) watch(ctx context.Context, tracer telemetry.Tracer, project, fuzzer string) func() {
	watchCtx, cancel := context.WithCancel(ctx)
	notify := make(chan string, 64)

	wd, err := f.watchdogs.New(watchCtx, notify, isCrashFile)
	if err != nil {
		f.logger.Debug("Crash watchdog unavailable", zap.Error(err))
		cancel()
		return func() {}
	}
	if err := wd.AddDir(f.helper.OutDir(project)); err != nil {
		f.logger.Debug("Crash watchdog unavailable", zap.Error(err))
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for path := range notify {
			f.logger.Info("Crash found",
				zap.String("project", project),
				zap.String("fuzzer", fuzzer),
				zap.String("file", filepath.Base(path)))
			tracer.AddEvent("crash observed", telemetry.CrashObserved(filepath.Base(path)))
		}
	}()

	return func() {
		cancel()
		<-wd.Done()
		<-drained
	}
}

func isCrashFile(path string) bool {
	name := filepath.Base(path)
	for _, prefix := range crashPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// maxTotalTime rounds up to whole seconds. The engine reads 0 as no limit.
func maxTotalTime(duration time.Duration) int {
	return max(1, int(math.Ceil(duration.Seconds())))
}
