// Package logger provides logging implementations for batch runs.
//
// ConsoleLogger and FileLogger both satisfy engine.Logger and filter by
// level. Multi fans events out to several loggers. Implementations are
// thread-safe.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/dbfc/internal/models"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled automatically when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	scheme      *colorScheme
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: IsTerminal(writer),
		scheme:      newColorScheme(),
	}
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !allows(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	tag := level
	if cl.colorOutput {
		tag = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), tag, message)
}

// paint colors s when the writer is a terminal.
func (cl *ConsoleLogger) paint(c *color.Color, s string) string {
	if !cl.colorOutput {
		return s
	}
	return c.Sprint(s)
}

// write emits lines at INFO level, each prefixed with the timestamp.
func (cl *ConsoleLogger) write(lines ...string) {
	if cl.writer == nil || !allows(cl.logLevel, "info") {
		return
	}
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var sb strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
	}
	io.WriteString(cl.writer, sb.String())
}

// LogRunStart announces the batch and how many jobs are pending.
// Format: "[HH:MM:SS] Running batch movies: 3 of 10 jobs pending"
func (cl *ConsoleLogger) LogRunStart(batch *models.Batch, pending int) {
	name := cl.paint(cl.scheme.label, batch.Name)
	cl.write(fmt.Sprintf("Running batch %s: %d of %d jobs pending", name, pending, len(batch.Jobs)))
}

// LogJobStart logs the job about to run with a progress bar.
// Format: "[HH:MM:SS] [====      ] 4/10 (40%) a/b.avi"
func (cl *ConsoleLogger) LogJobStart(current, total int, job models.Job, relPath string) {
	bar := NewProgressBar(total, 10, cl.colorOutput)
	bar.Update(current - 1)
	cl.write(fmt.Sprintf("%s %s", bar.Render(), relPath))
}

// LogJobResult logs whether a job finished Done or Error.
func (cl *ConsoleLogger) LogJobResult(outcome models.JobOutcome) {
	if outcome.Succeeded() {
		mark := cl.paint(cl.scheme.success, "✓")
		cl.write(fmt.Sprintf("%s %s -> %s (%s)", mark, outcome.RelPath, outcome.Job.DestinationPath, formatDuration(outcome.Duration)))
		return
	}
	mark := cl.paint(cl.scheme.fail, "✗")
	cl.write(fmt.Sprintf("%s %s: %v", mark, displayPath(outcome), outcome.Err))
}

// LogSummary logs the totals of a finished run.
func (cl *ConsoleLogger) LogSummary(result models.RunResult) {
	lines := []string{
		cl.paint(cl.scheme.bold, "=== Run Summary ==="),
		fmt.Sprintf("Run: %s", result.RunID),
		fmt.Sprintf("Attempted: %d", result.Attempted),
		cl.paint(cl.scheme.success, fmt.Sprintf("Done: %d", result.Done)),
	}
	failed := fmt.Sprintf("Failed: %d", result.Failed)
	if result.Failed > 0 {
		failed = cl.paint(cl.scheme.fail, failed)
	}
	lines = append(lines, failed)

	remaining := fmt.Sprintf("Remaining: %d", result.Remaining)
	if result.Remaining > 0 {
		remaining = cl.paint(cl.scheme.warn, remaining)
	}
	lines = append(lines, remaining, fmt.Sprintf("Duration: %s", formatDuration(result.Duration)))

	if result.Interrupted {
		lines = append(lines, cl.paint(cl.scheme.warn, "Interrupted: remaining jobs stay pending"))
	}
	if failedOutcomes := result.FailedOutcomes(); len(failedOutcomes) > 0 {
		lines = append(lines, cl.paint(cl.scheme.fail, "Failed jobs:"))
		for _, o := range failedOutcomes {
			lines = append(lines, fmt.Sprintf("  - %s: %v", displayPath(o), o.Err))
		}
	}
	cl.write(lines...)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

func displayPath(o models.JobOutcome) string {
	if o.RelPath != "" {
		return o.RelPath
	}
	return o.Job.SourcePath
}

// formatDuration renders d as "1h2m3s", "4m5s" or "6s".
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d > 0 && d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
