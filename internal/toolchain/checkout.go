package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Checkout clones repo into dir, or pulls when dir already holds a clone.
func Checkout(ctx context.Context, runner Runner, repo, dir string) error {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if err := runner.Run(ctx, Cmd{Dir: dir, Name: "git", Args: []string{"pull", "--ff-only"}}); err != nil {
			return fmt.Errorf("update %s: %w", dir, err)
		}
		return nil
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", parent, err)
	}
	if err := runner.Run(ctx, Cmd{Dir: parent, Name: "git", Args: []string{"clone", "--depth", "1", repo, dir}}); err != nil {
		return fmt.Errorf("clone %s: %w", repo, err)
	}
	return nil
}
