package toolchain_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/daehee87/fuzzing-bot/config"
	"github.com/daehee87/fuzzing-bot/internal/toolchain"
	"github.com/daehee87/fuzzing-bot/internal/toolchain/toolchaintest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHelperCommands(t *testing.T) {
	runner := &toolchaintest.FakeRunner{}
	helper := toolchain.New(runner, "/srv/oss-fuzz", zap.NewNop())
	ctx := context.Background()

	require.NoError(t, helper.BuildImage(ctx, "zlib"))
	require.NoError(t, helper.BuildFuzzers(ctx, "zlib", "address"))
	require.NoError(t, helper.RunFuzzer(ctx, "zlib", "fuzz_inflate", "-max_total_time=60", "fuzz_inflate_corpus"))

	assert.Equal(t, []string{
		"python3 infra/helper.py build_image zlib",
		"python3 infra/helper.py build_fuzzers --sanitizer address zlib",
		"python3 infra/helper.py run_fuzzer zlib fuzz_inflate -max_total_time=60 fuzz_inflate_corpus",
	}, runner.Invocations())

	for _, cmd := range runner.Commands() {
		assert.Equal(t, "/srv/oss-fuzz", cmd.Dir)
		assert.True(t, cmd.Privileged)
	}
	assert.Equal(t, "/srv/oss-fuzz/build/out/zlib", helper.OutDir("zlib"))
	assert.Equal(t, "/srv/oss-fuzz/projects/zlib", helper.ProjectDir("zlib"))
}

func TestHelperWriteFile(t *testing.T) {
	var written []byte
	runner := &toolchaintest.FakeRunner{Handler: func(cmd toolchain.Cmd) error {
		var err error
		written, err = io.ReadAll(cmd.Stdin)
		return err
	}}
	helper := toolchain.New(runner, "/srv/oss-fuzz", zap.NewNop())

	poc := []byte{0x00, 0xff, 0x10}
	require.NoError(t, helper.WriteFile(context.Background(), "/srv/out/poc", poc))
	assert.Equal(t, poc, written)
	assert.Equal(t, []string{"tee /srv/out/poc"}, runner.Invocations())
	assert.Equal(t, io.Discard, runner.Commands()[0].Stdout)
}

func TestHelperRemoveNothing(t *testing.T) {
	runner := &toolchaintest.FakeRunner{}
	helper := toolchain.New(runner, "/srv/oss-fuzz", zap.NewNop())
	require.NoError(t, helper.Remove(context.Background()))
	require.NoError(t, helper.RemoveAll(context.Background(), ""))
	assert.Empty(t, runner.Commands())

	require.NoError(t, helper.RemoveAll(context.Background(), "/srv/out/fuzz_corpus"))
	assert.Equal(t, []string{"rm -rf /srv/out/fuzz_corpus"}, runner.Invocations())
	assert.True(t, runner.Commands()[0].Privileged)
}

func TestHelperErrorsWrapped(t *testing.T) {
	boom := errors.New("exit status 1")
	runner := &toolchaintest.FakeRunner{Handler: func(toolchain.Cmd) error { return boom }}
	helper := toolchain.New(runner, "/srv/oss-fuzz", zap.NewNop())

	err := helper.BuildFuzzers(context.Background(), "zlib", "address")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "build fuzzers")
}

func TestCheckout(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "oss-fuzz")
	runner := &toolchaintest.FakeRunner{}

	require.NoError(t, toolchain.Checkout(context.Background(), runner, "https://example.com/oss-fuzz", dir))
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, toolchain.Checkout(context.Background(), runner, "https://example.com/oss-fuzz", dir))

	cmds := runner.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "git clone --depth 1 https://example.com/oss-fuzz "+dir, cmds[0].String())
	assert.Equal(t, root, cmds[0].Dir)
	assert.Equal(t, "git pull --ff-only", cmds[1].String())
	assert.Equal(t, dir, cmds[1].Dir)
}

func TestCheckPython(t *testing.T) {
	version := func(out string) *toolchaintest.FakeRunner {
		return &toolchaintest.FakeRunner{Handler: func(cmd toolchain.Cmd) error {
			_, err := io.WriteString(cmd.Stdout, out)
			return err
		}}
	}

	assert.NoError(t, toolchain.CheckPython(context.Background(), version("Python 3.10.12\n")))
	assert.Error(t, toolchain.CheckPython(context.Background(), version("Python 2.7.18\n")))
	assert.Error(t, toolchain.CheckPython(context.Background(), version("")))
}

func TestCheckWorkDir(t *testing.T) {
	assert.NoError(t, toolchain.CheckWorkDir(t.TempDir()))
	assert.Error(t, toolchain.CheckWorkDir(filepath.Join(t.TempDir(), "missing")))
}

func TestMissingTools(t *testing.T) {
	assert.Equal(t, []string{"definitely-not-a-real-tool"}, toolchain.MissingTools("sh", "definitely-not-a-real-tool"))
}

func TestExecRunnerWithoutSudo(t *testing.T) {
	runner := toolchain.NewExecRunner(toolchain.ExecRunnerParams{
		Config: &config.AppConfig{Campaign: config.CampaignConfig{UseSudo: false}},
		Logger: zap.NewNop(),
	})
	require.NoError(t, runner.Authorize(context.Background()))

	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, runner.Run(context.Background(), toolchain.Cmd{
		Dir:        dir,
		Name:       "pwd",
		Privileged: true,
		Stdout:     &out,
	}))
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, filepath.Clean(string(bytes.TrimSpace(out.Bytes()))))

	err = runner.Run(context.Background(), toolchain.Cmd{Dir: dir, Name: "false"})
	assert.ErrorContains(t, err, "false")
}
