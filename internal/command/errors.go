package command

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExecutableNotFound indicates the executable could not be located or started.
var ErrExecutableNotFound = errors.New("executable not found")

// NotFoundError reports an executable that could not be spawned.
type NotFoundError struct {
	Executable string // Name as written in the template
	Err        error  // Underlying exec/os error
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("failed to execute '%s': %v", e.Executable, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *NotFoundError) Unwrap() []error {
	return []error{ErrExecutableNotFound, e.Err}
}

// ExitError reports a command that ran and exited unsuccessfully.
type ExitError struct {
	Executable string // Name as written in the template
	Code       *int   // Exit code; nil when terminated by a signal
	Stderr     string // Captured standard error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	if e.Code == nil {
		return fmt.Sprintf("command '%s' was terminated by a signal", e.Executable)
	}
	return fmt.Sprintf("command '%s' failed with exit code %d", e.Executable, *e.Code)
}

// TimeoutError reports a command killed after exceeding its time limit.
type TimeoutError struct {
	Executable string
	Timeout    time.Duration
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command '%s': timeout after %v", e.Executable, e.Timeout)
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// ExitCode extracts the exit code from err if it is or wraps an ExitError.
func ExitCode(err error) (int, bool) {
	var ee *ExitError
	if errors.As(err, &ee) && ee.Code != nil {
		return *ee.Code, true
	}
	return 0, false
}

// IsNotFound checks if the error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExecutableNotFound)
}

// IsTimeout checks if the error is or wraps a TimeoutError or context.DeadlineExceeded.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
