// Package toolchaintest provides a scripted toolchain.Runner for tests.
package toolchaintest

import (
	"context"
	"sync"

	"github.com/daehee87/fuzzing-bot/internal/toolchain"
)

// FakeRunner records every command. Handler, when set, decides the outcome
// and may create files to mimic the real tool.
type FakeRunner struct {
	Handler func(cmd toolchain.Cmd) error

	mu   sync.Mutex
	cmds []toolchain.Cmd
}

func (f *FakeRunner) Run(_ context.Context, cmd toolchain.Cmd) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler != nil {
		return handler(cmd)
	}
	return nil
}

func (f *FakeRunner) Commands() []toolchain.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolchain.Cmd(nil), f.cmds...)
}

// Invocations returns each command as "name arg1 arg2 ...".
func (f *FakeRunner) Invocations() []string {
	var out []string
	for _, cmd := range f.Commands() {
		out = append(out, cmd.String())
	}
	return out
}

// HelperCalls returns the helper.py subcommands in order.
func (f *FakeRunner) HelperCalls() []string {
	var out []string
	for _, cmd := range f.Commands() {
		if cmd.Name == "python3" && len(cmd.Args) > 1 {
			out = append(out, cmd.Args[1])
		}
	}
	return out
}
