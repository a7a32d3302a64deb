package models

import (
	"encoding/json"
	"fmt"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	// StatusPending marks a job that has not been attempted yet.
	StatusPending JobStatus = "Pending"
	// StatusDone marks a job whose command exited successfully.
	StatusDone JobStatus = "Done"
	// StatusError marks a job that failed; it is never retried automatically.
	StatusError JobStatus = "Error"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDone, StatusError:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown status strings so a corrupt state file
// fails loudly instead of silently skipping jobs.
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("job status: %w", err)
	}
	status := JobStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("unknown job status %q", raw)
	}
	*s = status
	return nil
}

// Job is one unit of work: a single source file to convert.
type Job struct {
	SourcePath             string    `json:"source_path"`           // Absolute path, immutable
	SourceFingerprint      string    `json:"source_sha256sum"`      // Hex SHA-256 taken at init, immutable
	DestinationPath        string    `json:"destination_path"`      // Set once the job is Done
	DestinationFingerprint string    `json:"destination_sha256sum"` // Reserved; never computed
	Status                 JobStatus `json:"status"`
}

// NewJob creates a pending job for a fingerprinted source file.
func NewJob(sourcePath, fingerprint string) Job {
	return Job{
		SourcePath:        sourcePath,
		SourceFingerprint: fingerprint,
		Status:            StatusPending,
	}
}

// IsPending returns true if the job has not been attempted.
func (j *Job) IsPending() bool {
	return j.Status == StatusPending
}

// MarkDone records a successful conversion. Only pending jobs transition.
func (j *Job) MarkDone(destination string) error {
	if !j.IsPending() {
		return fmt.Errorf("job %s: cannot mark %s job as Done", j.SourcePath, j.Status)
	}
	j.Status = StatusDone
	j.DestinationPath = destination
	return nil
}

// MarkError records a failed attempt. Only pending jobs transition.
func (j *Job) MarkError() error {
	if !j.IsPending() {
		return fmt.Errorf("job %s: cannot mark %s job as Error", j.SourcePath, j.Status)
	}
	j.Status = StatusError
	return nil
}
