package crash

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/daehee87/fuzzing-bot/internal/coordinator"
	"github.com/daehee87/fuzzing-bot/internal/types"
	"github.com/daehee87/fuzzing-bot/pkg/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	err     error
	reports []types.CampaignReport
}

func (f *fakeUploader) Report(_ context.Context, report types.CampaignReport) error {
	f.reports = append(f.reports, report)
	return f.err
}

type osRemover struct{}

func (osRemover) Remove(_ context.Context, paths ...string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

type fakeEvents struct {
	events []mq.ReportEvent
}

func (f *fakeEvents) PublishReport(_ context.Context, event mq.ReportEvent) error {
	f.events = append(f.events, event)
	return nil
}

func artifacts(t *testing.T, dir string, contents ...string) []types.CrashArtifact {
	var out []types.CrashArtifact
	for i, content := range contents {
		path := filepath.Join(dir, "crash-"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		out = append(out, types.CrashArtifact{Project: "zlib", Fuzzer: "fuzz_inflate", Path: path, Data: []byte(content)})
	}
	return out
}

func digest(data string) string {
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

func TestNothingToReport(t *testing.T) {
	uploader := &fakeUploader{}
	r := New(uploader, osRemover{}, t.TempDir(), zap.NewNop())

	assert.Equal(t, NothingToReport, r.Report(context.Background(), "bot", "zlib", "fuzz_inflate", nil))
	assert.Empty(t, uploader.reports)
}

func TestAcknowledgedMovesCrashes(t *testing.T) {
	outDir, store := t.TempDir(), t.TempDir()
	uploader := &fakeUploader{}
	events := &fakeEvents{}
	r := New(uploader, osRemover{}, store, zap.NewNop())
	r.events = events

	crashes := artifacts(t, outDir, "AAAA", "BB")
	outcome := r.Report(context.Background(), "bot", "zlib", "fuzz_inflate", crashes)
	require.Equal(t, Acknowledged, outcome)

	require.Len(t, uploader.reports, 1)
	assert.Equal(t, types.BotIdentity("bot"), uploader.reports[0].BotID)
	assert.Equal(t, [][]byte{[]byte("AAAA"), []byte("BB")}, uploader.reports[0].Crashes)

	for _, c := range crashes {
		assert.NoFileExists(t, c.Path)
	}
	stored, err := os.ReadFile(filepath.Join(store, "zlib", "fuzz_inflate", digest("AAAA")))
	require.NoError(t, err)
	assert.Equal(t, "AAAA", string(stored))
	assert.FileExists(t, filepath.Join(store, "zlib", "fuzz_inflate", digest("BB")))

	require.Len(t, events.events, 1)
	assert.Equal(t, 2, events.events[0].CrashCount)
	assert.Equal(t, []string{digest("AAAA"), digest("BB")}, events.events[0].Digests)
}

func TestFailedReportsKeepCrashes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"rejected", &coordinator.RejectionError{Path: coordinator.ReportPath, RetCode: 2}, RejectedByCoordinator},
		{"offline", &coordinator.ConnectivityError{Path: coordinator.ReportPath, Err: errors.New("refused")}, ConnectivityFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir, store := t.TempDir(), t.TempDir()
			r := New(&fakeUploader{err: tt.err}, osRemover{}, store, zap.NewNop())

			crashes := artifacts(t, outDir, "AAAA")
			assert.Equal(t, tt.want, r.Report(context.Background(), "bot", "zlib", "fuzz_inflate", crashes))
			assert.FileExists(t, crashes[0].Path)
			assert.NoDirExists(t, filepath.Join(store, "zlib"))
		})
	}
}

func TestDuplicateCrashesStoredOnce(t *testing.T) {
	outDir, store := t.TempDir(), t.TempDir()
	r := New(&fakeUploader{}, osRemover{}, store, zap.NewNop())

	crashes := artifacts(t, outDir, "same", "same")
	require.Equal(t, Acknowledged, r.Report(context.Background(), "bot", "zlib", "fuzz_inflate", crashes))

	entries, err := os.ReadDir(filepath.Join(store, "zlib", "fuzz_inflate"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
