package fuzz

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/daehee87/fuzzing-bot/pkg/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

func pocDirName(fuzzer string) string {
	return fuzzer + "_poc"
}

// Verify replays one input against a built fuzz target. Whether it still
// crashes is read from the engine output by the operator.
func (f *Fuzzer) Verify(ctx context.Context, project, fuzzer, name string, poc []byte) error {
	tracer := telemetry.FromContext(ctx).Spawn(fmt.Sprintf("verifying %s", name)).WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Verifying).WithProject(project).WithFuzzer(fuzzer),
	)
	tracer.Start()
	defer tracer.End()

	if name == "" || filepath.Base(name) != name || name == ".." {
		return fmt.Errorf("invalid poc name %q", name)
	}

	pocDir := filepath.Join(f.helper.OutDir(project), pocDirName(fuzzer))
	if err := f.helper.MkdirAll(ctx, pocDir); err != nil {
		tracer.SetStatus(codes.Error, "failed to create poc dir")
		return fmt.Errorf("create poc dir: %w", err)
	}
	if err := f.helper.WriteFile(ctx, filepath.Join(pocDir, name), poc); err != nil {
		tracer.SetStatus(codes.Error, "failed to write poc")
		return fmt.Errorf("write poc: %w", err)
	}

	f.logger.Info("Replaying poc",
		zap.String("project", project),
		zap.String("fuzzer", fuzzer),
		zap.String("poc", name),
		zap.Int("size", len(poc)))
	if err := f.helper.RunFuzzer(ctx, project, fuzzer, filepath.Join(pocDirName(fuzzer), name)); err != nil {
		// a reproduced crash exits non-zero
		f.logger.Info("Replay exited with error", zap.String("poc", name), zap.Error(err))
		tracer.SetStatus(codes.Ok, "replay exited non-zero")
		return nil
	}
	tracer.SetStatus(codes.Ok, "replay finished")
	return nil
}
