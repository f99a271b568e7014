package fuzz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/toolchain/toolchaintest"
	"github.com/daehee87/fuzzing-bot/pkg/watchdog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	runner *toolchaintest.FakeRunner
	fuzzer *Fuzzer
	outDir string
}

func newFixture(t *testing.T) *fixture {
	ossFuzz := t.TempDir()
	runner := &toolchaintest.FakeRunner{}
	helper := toolchain.New(runner, ossFuzz, zap.NewNop())
	outDir := helper.OutDir("zlib")
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	return &fixture{
		runner: runner,
		fuzzer: New(helper, watchdog.NewWatchDogFactory(zap.NewNop()), zap.NewNop()),
		outDir: outDir,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPrepareCorpusFromSeedZip(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.outDir, "fuzz_inflate_seed_corpus.zip"), "PK")
	f.runner.Handler = func(cmd toolchain.Cmd) error {
		if cmd.Name == "unzip" {
			return os.MkdirAll(cmd.Args[len(cmd.Args)-1], 0o755)
		}
		return nil
	}

	require.NoError(t, f.fuzzer.PrepareCorpus(context.Background(), "zlib", "fuzz_inflate"))
	require.NoError(t, f.fuzzer.PrepareCorpus(context.Background(), "zlib", "fuzz_inflate"))

	corpus := filepath.Join(f.outDir, "fuzz_inflate_corpus")
	assert.Equal(t, []string{
		"unzip -o -q " + filepath.Join(f.outDir, "fuzz_inflate_seed_corpus.zip") + " -d " + corpus,
	}, f.runner.Invocations())
	assert.DirExists(t, corpus)
}

func TestPrepareCorpusWithoutSeeds(t *testing.T) {
	f := newFixture(t)
	f.runner.Handler = func(cmd toolchain.Cmd) error {
		if cmd.Name == "mkdir" {
			return os.MkdirAll(cmd.Args[len(cmd.Args)-1], 0o755)
		}
		return nil
	}

	for range 3 {
		require.NoError(t, f.fuzzer.PrepareCorpus(context.Background(), "zlib", "fuzz_inflate"))
	}
	assert.Equal(t, []string{"mkdir -p " + filepath.Join(f.outDir, "fuzz_inflate_corpus")}, f.runner.Invocations())
}

func TestPrepareCorpusRemovesPartialExtraction(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.outDir, "fuzz_inflate_seed_corpus.zip"), "PK")
	corpus := filepath.Join(f.outDir, "fuzz_inflate_corpus")
	failUnzip := true
	f.runner.Handler = func(cmd toolchain.Cmd) error {
		switch cmd.Name {
		case "unzip":
			if err := os.MkdirAll(corpus, 0o755); err != nil {
				return err
			}
			if failUnzip {
				return errors.New("unzip: truncated archive")
			}
		case "rm":
			return os.RemoveAll(cmd.Args[len(cmd.Args)-1])
		}
		return nil
	}

	require.Error(t, f.fuzzer.PrepareCorpus(context.Background(), "zlib", "fuzz_inflate"))
	assert.NoDirExists(t, corpus)

	failUnzip = false
	require.NoError(t, f.fuzzer.PrepareCorpus(context.Background(), "zlib", "fuzz_inflate"))
	unzip := "unzip -o -q " + filepath.Join(f.outDir, "fuzz_inflate_seed_corpus.zip") + " -d " + corpus
	assert.Equal(t, []string{unzip, "rm -rf " + corpus, unzip}, f.runner.Invocations())
	assert.DirExists(t, corpus)
}

func TestRunRoundsTimeLimitUp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Mkdir(filepath.Join(f.outDir, "fuzz_inflate_corpus"), 0o755))

	f.fuzzer.Run(context.Background(), "zlib", "fuzz_inflate", 500*time.Millisecond)
	f.fuzzer.Run(context.Background(), "zlib", "fuzz_inflate", 90500*time.Millisecond)

	assert.Equal(t, []string{
		"python3 infra/helper.py run_fuzzer zlib fuzz_inflate -max_total_time=1 fuzz_inflate_corpus",
		"python3 infra/helper.py run_fuzzer zlib fuzz_inflate -max_total_time=91 fuzz_inflate_corpus",
	}, f.runner.Invocations())
	assert.Equal(t, 1, maxTotalTime(0))
}

func TestRunCollectsNewNonEmptyCrashes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Mkdir(filepath.Join(f.outDir, "fuzz_inflate_corpus"), 0o755))

	old := filepath.Join(f.outDir, "crash-old")
	writeFile(t, old, "from an earlier session")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	f.runner.Handler = func(cmd toolchain.Cmd) error {
		if len(cmd.Args) > 1 && cmd.Args[1] == "run_fuzzer" {
			writeFile(t, filepath.Join(f.outDir, "crash-aaa"), "AAAA")
			writeFile(t, filepath.Join(f.outDir, "timeout-bbb"), "BB")
			writeFile(t, filepath.Join(f.outDir, "crash-empty"), "")
			writeFile(t, filepath.Join(f.outDir, "fuzz-0.log"), "log")
		}
		return nil
	}

	result := f.fuzzer.Run(context.Background(), "zlib", "fuzz_inflate", 90*time.Second)
	require.NoError(t, result.Err)
	require.Len(t, result.Crashes, 2)
	assert.Equal(t, "crash-aaa", result.Crashes[0].Name())
	assert.Equal(t, []byte("AAAA"), result.Crashes[0].Data)
	assert.Equal(t, "timeout-bbb", result.Crashes[1].Name())
	assert.Equal(t, "fuzz_inflate", result.Crashes[1].Fuzzer)

	assert.Equal(t, []string{
		"python3 infra/helper.py run_fuzzer zlib fuzz_inflate -max_total_time=90 fuzz_inflate_corpus",
	}, f.runner.Invocations())
}

func TestVerifyWritesPocThenReplays(t *testing.T) {
	f := newFixture(t)
	poc := []byte{0x00, 0x01, 0xff}

	require.NoError(t, f.fuzzer.Verify(context.Background(), "zlib", "fuzz_inflate", "crash-abc", poc))

	pocDir := filepath.Join(f.outDir, "fuzz_inflate_poc")
	assert.Equal(t, []string{
		"mkdir -p " + pocDir,
		"tee " + filepath.Join(pocDir, "crash-abc"),
		"python3 infra/helper.py run_fuzzer zlib fuzz_inflate fuzz_inflate_poc/crash-abc",
	}, f.runner.Invocations())
}

func TestVerifyRejectsPathNames(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"", "..", "../escape", "a/b"} {
		assert.Error(t, f.fuzzer.Verify(context.Background(), "zlib", "fuzz_inflate", name, []byte("x")), name)
	}
	assert.Empty(t, f.runner.Commands())
}

func TestIsCrashFile(t *testing.T) {
	for _, name := range []string{"crash-1", "leak-2", "timeout-3", "oom-4"} {
		assert.True(t, isCrashFile("/out/"+name), name)
	}
	for _, name := range []string{"fuzz_inflate", "crash", "slow-unit-1"} {
		assert.False(t, isCrashFile(name), name)
	}
}
