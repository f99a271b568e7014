package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// CheckPython fails unless python3 reports major version 3.
func CheckPython(ctx context.Context, runner Runner) error {
	var out bytes.Buffer
	if err := runner.Run(ctx, Cmd{Name: "python3", Args: []string{"--version"}, Stdout: &out}); err != nil {
		return fmt.Errorf("python3 required: %w", err)
	}
	major, err := pythonMajor(out.String())
	if err != nil {
		return err
	}
	if major != "3" {
		return fmt.Errorf("python3 required, found version %s", strings.TrimSpace(out.String()))
	}
	return nil
}

func pythonMajor(versionLine string) (string, error) {
	// "Python 3.10.12"
	fields := strings.Fields(versionLine)
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected python version output %q", versionLine)
	}
	major, _, _ := strings.Cut(fields[1], ".")
	return major, nil
}

// CheckWorkDir fails unless the current user can read and write dir.
func CheckWorkDir(dir string) error {
	if err := unix.Access(dir, unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("read/write permission required for %s: %w", dir, err)
	}
	return nil
}

// MissingTools returns the names not found on PATH.
func MissingTools(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
