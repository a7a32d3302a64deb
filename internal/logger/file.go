package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/dbfc/internal/models"
)

// FileLogger logs run events to files in a log directory.
// It creates a timestamped per-run log file, a detailed log per failed job,
// and maintains a latest.log symlink pointing to the most recent run.
// It is thread-safe and implements the engine.Logger interface.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	jobsDir  string
	stamp    string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir with the given level.
// It creates the log directory if it doesn't exist, opens a timestamped run
// log file, and creates/updates the latest.log symlink.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	jobsDir := filepath.Join(logDir, "jobs")
	if err := os.MkdirAll(jobsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create jobs directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		jobsDir:  jobsDir,
		stamp:    stamp,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== dbfc Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of this run's log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !allows(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogRunStart records the batch being run.
func (fl *FileLogger) LogRunStart(batch *models.Batch, pending int) {
	if !allows(fl.logLevel, "info") {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] Batch: %s\n", timestamp(), batch.Name)
	fmt.Fprintf(&sb, "[%s] Source: %s\n", timestamp(), batch.SourceDir)
	fmt.Fprintf(&sb, "[%s] Destination: %s\n", timestamp(), batch.DestinationDir)
	fmt.Fprintf(&sb, "[%s] Pending: %d of %d jobs\n", timestamp(), pending, len(batch.Jobs))
	fl.writeRunLog(sb.String())
}

// LogJobStart records the job about to run.
func (fl *FileLogger) LogJobStart(current, total int, job models.Job, relPath string) {
	if !allows(fl.logLevel, "info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Job %d/%d: %s\n", timestamp(), current, total, relPath))
}

// LogJobResult records the job's final status. Failed jobs also get a
// detailed log with the command and its full output under jobs/.
func (fl *FileLogger) LogJobResult(outcome models.JobOutcome) {
	if outcome.Succeeded() {
		if allows(fl.logLevel, "info") {
			fl.writeRunLog(fmt.Sprintf("[%s] Done: %s -> %s (%s)\n",
				timestamp(), outcome.RelPath, outcome.Job.DestinationPath, formatDuration(outcome.Duration)))
		}
		return
	}

	if allows(fl.logLevel, "error") {
		fl.writeRunLog(fmt.Sprintf("[%s] Error: %s: %v\n", timestamp(), displayPath(outcome), outcome.Err))
	}
	if err := fl.writeJobLog(outcome); err != nil {
		fl.LogWarn(fmt.Sprintf("failed to write job log: %v", err))
	}
}

// LogSummary records the totals of a finished run.
func (fl *FileLogger) LogSummary(result models.RunResult) {
	if !allows(fl.logLevel, "info") {
		return
	}
	var sb strings.Builder
	ts := timestamp()
	fmt.Fprintf(&sb, "\n[%s] === Run Summary ===\n", ts)
	fmt.Fprintf(&sb, "[%s] Run: %s\n", ts, result.RunID)
	fmt.Fprintf(&sb, "[%s] Attempted: %d\n", ts, result.Attempted)
	fmt.Fprintf(&sb, "[%s] Done: %d\n", ts, result.Done)
	fmt.Fprintf(&sb, "[%s] Failed: %d\n", ts, result.Failed)
	fmt.Fprintf(&sb, "[%s] Remaining: %d\n", ts, result.Remaining)
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(result.Duration))
	if result.Interrupted {
		fmt.Fprintf(&sb, "[%s] Interrupted: yes\n", ts)
	}
	fl.writeRunLog(sb.String())
}

// writeJobLog writes jobs/<run-stamp>-<index>.log for a failed job.
func (fl *FileLogger) writeJobLog(outcome models.JobOutcome) error {
	path := filepath.Join(fl.jobsDir, fmt.Sprintf("%s-%04d.log", fl.stamp, outcome.Index))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\n", outcome.Job.SourcePath)
	fmt.Fprintf(&sb, "Fingerprint: %s\n", outcome.Job.SourceFingerprint)
	fmt.Fprintf(&sb, "Status: %s\n", outcome.Job.Status)
	if len(outcome.Argv) > 0 {
		fmt.Fprintf(&sb, "Command: %s\n", strings.Join(outcome.Argv, " "))
	}
	if outcome.ExitCode != nil {
		fmt.Fprintf(&sb, "Exit code: %d\n", *outcome.ExitCode)
	}
	fmt.Fprintf(&sb, "Error: %v\n", outcome.Err)
	fmt.Fprintf(&sb, "Duration: %s\n", formatDuration(outcome.Duration))
	if outcome.Stdout != "" {
		fmt.Fprintf(&sb, "\n--- stdout ---\n%s\n", outcome.Stdout)
	}
	if outcome.Stderr != "" {
		fmt.Fprintf(&sb, "\n--- stderr ---\n%s\n", outcome.Stderr)
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// Close flushes and closes the run log.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write for real-time logging
		fl.runLog.Sync()
	}
}
