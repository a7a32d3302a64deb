package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Result captures the outcome of a process that was spawned.
type Result struct {
	Success  bool
	ExitCode *int // nil when terminated by a signal
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner spawns commands with os/exec and waits for them to exit.
type ExecRunner struct {
	// Timeout bounds each command (0 = no limit).
	Timeout time.Duration
}

// NewExecRunner creates an ExecRunner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes cmd synchronously, capturing stdout and stderr in full.
//
// The returned error is nil only when the process exited with status 0.
// When the process ran, the Result is returned alongside any *ExitError or
// *TimeoutError so callers can inspect its output. An executable that cannot
// be started yields a *NotFoundError and a nil Result. Cancellation of ctx
// itself is returned as ctx.Err() wrapped.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Executable == "" {
		return nil, ErrEmptyTemplate
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Executable, c.Args...)
	// Children that inherit the pipes must not keep Wait blocked forever.
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		code := 0
		result.Success = true
		result.ExitCode = &code
		return result, nil
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("command '%s' interrupted: %w", c.Executable, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return result, &TimeoutError{Executable: c.Executable, Timeout: r.Timeout}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			result.ExitCode = &code
		}
		return result, &ExitError{
			Executable: c.Executable,
			Code:       result.ExitCode,
			Stderr:     result.Stderr,
		}
	}

	return nil, &NotFoundError{Executable: c.Executable, Err: err}
}
