package engine

import "github.com/harrison/dbfc/internal/models"

// Logger receives engine progress. Implementations live in internal/logger.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRunStart(batch *models.Batch, pending int)
	LogJobStart(current, total int, job models.Job, relPath string)
	LogJobResult(outcome models.JobOutcome)
	LogSummary(result models.RunResult)
}

// Recorder persists job attempts outside the batch state. The attempt
// history is advisory: a failing Recorder never fails a job.
type Recorder interface {
	RecordAttempt(runID, batchName string, outcome models.JobOutcome) error
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string) {}
func (nopLogger) LogWarn(string) {}
func (nopLogger) LogError(string) {}
func (nopLogger) LogRunStart(*models.Batch, int) {}
func (nopLogger) LogJobStart(int, int, models.Job, string) {}
func (nopLogger) LogJobResult(models.JobOutcome) {}
func (nopLogger) LogSummary(models.RunResult) {}
