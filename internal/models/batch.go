package models

import (
	"errors"
	"fmt"

	"github.com/harrison/dbfc/internal/rules"
)

// Batch is the persisted record of one batch: its roots, its rules and the
// job list fixed at init.
type Batch struct {
	Name           string      `json:"name"`
	SourceDir      string      `json:"source_dir"`
	DestinationDir string      `json:"destination_dir"`
	Rules          rules.Table `json:"rules"`
	Jobs           []Job       `json:"jobs"`
}

// Summary counts jobs by status.
type Summary struct {
	Total   int
	Pending int
	Done    int
	Error   int
}

// Validate checks that a loaded batch is structurally usable.
func (b *Batch) Validate() error {
	if b.Name == "" {
		return errors.New("batch name is required")
	}
	if b.SourceDir == "" {
		return errors.New("batch source_dir is required")
	}
	if b.DestinationDir == "" {
		return errors.New("batch destination_dir is required")
	}
	seen := make(map[string]bool, len(b.Jobs))
	for i, job := range b.Jobs {
		if job.SourcePath == "" {
			return fmt.Errorf("job %d: source_path is required", i)
		}
		if seen[job.SourcePath] {
			return fmt.Errorf("job %d: duplicate source_path %s", i, job.SourcePath)
		}
		seen[job.SourcePath] = true
		if !job.Status.Valid() {
			return fmt.Errorf("job %d: unknown status %q", i, job.Status)
		}
	}
	return nil
}

// Pending returns the indexes of pending jobs in stored order.
func (b *Batch) Pending() []int {
	var idx []int
	for i := range b.Jobs {
		if b.Jobs[i].IsPending() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Summary returns job counts by status.
func (b *Batch) Summary() Summary {
	s := Summary{Total: len(b.Jobs)}
	for _, job := range b.Jobs {
		switch job.Status {
		case StatusPending:
			s.Pending++
		case StatusDone:
			s.Done++
		case StatusError:
			s.Error++
		}
	}
	return s
}

// JobsWithStatus returns copies of the jobs in the given status.
func (b *Batch) JobsWithStatus(status JobStatus) []Job {
	var out []Job
	for _, job := range b.Jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	return out
}
