package task

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"taskgate/internal/types"
)

// Runner is the narrow OS shim the core uses to execute a resolved
// command. Implementations capture combined output and report the
// process exit code.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) (output string, exitCode int, err error)
}

// execRunner runs commands via os/exec with a bounded timeout.
type execRunner struct {
	timeout time.Duration
}

func newExecRunner(timeout time.Duration) *execRunner {
	return &execRunner{timeout: timeout}
}

func (r *execRunner) Run(ctx context.Context, path string, args ...string) (string, int, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, args...)
	out, err := cmd.CombinedOutput()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return string(out), -1, fmt.Errorf("%w after %s", types.ErrExecutionTimeout, r.timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(),
				fmt.Errorf("command exited with code %d", exitErr.ExitCode())
		}
		return string(out), -1, fmt.Errorf("failed to run command: %w", err)
	}

	return string(out), 0, nil
}
