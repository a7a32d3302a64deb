package models

import "time"

// JobOutcome is the result of attempting one pending job during a run.
type JobOutcome struct {
	Job      Job           // Job state after the attempt
	Index    int           // Position of the job in Batch.Jobs
	RelPath  string        // Source path relative to the batch source directory
	Argv     []string      // Planned command, empty if planning never happened
	ExitCode *int          // Exit code when the command ran; nil otherwise
	Stdout   string        // Captured standard output
	Stderr   string        // Captured standard error
	Duration time.Duration // Wall time spent on the job
	Err      error         // Failure reason; nil when the job is Done
}

// Succeeded returns true if the job finished Done.
func (o JobOutcome) Succeeded() bool {
	return o.Err == nil && o.Job.Status == StatusDone
}

// RunResult summarises one run invocation over a batch.
type RunResult struct {
	RunID       string        // Unique identifier of this run
	BatchName   string        // Batch that was run
	Attempted   int           // Jobs that were attempted
	Done        int           // Attempted jobs that finished Done
	Failed      int           // Attempted jobs that finished Error
	Remaining   int           // Jobs still Pending after the run
	Interrupted bool          // True if cancellation stopped the run early
	Outcomes    []JobOutcome  // One entry per attempted job, in order
	Duration    time.Duration // Total run time
	Summary     Summary       // Batch-wide counts after the run
}

// FailedOutcomes returns the outcomes of jobs that ended in Error.
func (r *RunResult) FailedOutcomes() []JobOutcome {
	var failed []JobOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}
