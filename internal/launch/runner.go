package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ExitCommandNotFound mirrors the shell status for a program that cannot be found.
const ExitCommandNotFound = 127

// DefaultWaitDelay is how long a cancelled child may keep running after the
// interrupt before it is killed.
const DefaultWaitDelay = 30 * time.Second

// Runner runs a command to completion.
//
// Run returns the child's exit status. The error is non-nil only when the
// child could not be started; a child that ran and failed is reported
// through the status alone.
type Runner interface {
	Run(ctx context.Context, c Command) (int, error)
}

// ExecRunner runs commands as OS processes with stdio attached.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interrupt is sent to the child when ctx is cancelled. Defaults to os.Interrupt.
	Interrupt os.Signal

	// WaitDelay bounds the wait after Interrupt before the child is killed.
	// Defaults to DefaultWaitDelay.
	WaitDelay time.Duration

	Logger *slog.Logger
}

// NewExecRunner returns an ExecRunner wired to the process's own stdio.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Run starts c and waits for it. Cancelling ctx forwards Interrupt to the
// child; the child's eventual status is still returned.
func (r *ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec // argv is built from validated plans
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	sig := r.Interrupt
	if sig == nil {
		sig = os.Interrupt
	}
	cmd.Cancel = func() error {
		logger.Info("forwarding interrupt to child", "signal", sig.String(), "pid", cmd.Process.Pid)
		return cmd.Process.Signal(sig)
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ExitCommandNotFound, fmt.Errorf("starting %s: %w", c.Path, err)
		}
		return 1, fmt.Errorf("starting %s: %w", c.Path, err)
	}
	logger.Debug("child started", "pid", cmd.Process.Pid, "cmd", c.String())

	waitErr := cmd.Wait()
	if cmd.ProcessState == nil {
		return 1, fmt.Errorf("waiting for %s: %w", c.Path, waitErr)
	}

	code := exitStatus(cmd.ProcessState)
	logger.Debug("child exited", "pid", cmd.Process.Pid, "code", code, "elapsed", time.Since(start).Round(time.Millisecond))
	return code, nil
}
