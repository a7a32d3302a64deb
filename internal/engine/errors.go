package engine

import (
	"errors"
	"fmt"
)

// Stage names the step of a job at which it failed.
type Stage string

const (
	// StageResolve covers relating the source path to the batch source directory.
	StageResolve Stage = "resolve"
	// StageVerify covers re-checking that the source is still a regular file.
	StageVerify Stage = "verify"
	// StageRule covers extension extraction and rule lookup.
	StageRule Stage = "rule"
	// StagePlan covers turning the rule template into a command.
	StagePlan Stage = "plan"
	// StagePrepare covers creating the destination directory.
	StagePrepare Stage = "prepare"
	// StageExecute covers running the external command.
	StageExecute Stage = "execute"
)

var (
	// ErrOutsideSourceDir indicates a job whose source is not under the batch source directory.
	ErrOutsideSourceDir = errors.New("source path is not under the source directory")
	// ErrSourceMissing indicates the source file no longer exists.
	ErrSourceMissing = errors.New("path does not exist")
	// ErrNotRegularFile indicates the source is no longer a regular file.
	ErrNotRegularFile = errors.New("path is not a file")
	// ErrDestinationDir indicates the destination directory could not be created.
	ErrDestinationDir = errors.New("unable to create output directory")
	// ErrSameDirectory indicates source and destination resolve to one directory.
	ErrSameDirectory = errors.New("destination directory must differ from source directory")
)

// JobError is a job-level failure. It marks one job as Error and never
// aborts the batch.
type JobError struct {
	SourcePath string // Job that failed
	Stage      Stage  // Step at which it failed
	Err        error  // Underlying cause
}

func newJobError(path string, stage Stage, err error) *JobError {
	return &JobError{SourcePath: path, Stage: stage, Err: err}
}

// Error implements the error interface for JobError.
func (e *JobError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("job %s: %s failed", e.SourcePath, e.Stage)
	}
	return fmt.Sprintf("job %s: %s: %v", e.SourcePath, e.Stage, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *JobError) Unwrap() error {
	return e.Err
}

// StageOf returns the failing stage of a JobError, or "" for other errors.
func StageOf(err error) Stage {
	var je *JobError
	if errors.As(err, &je) {
		return je.Stage
	}
	return ""
}
