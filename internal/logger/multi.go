package logger

import (
	"github.com/harrison/dbfc/internal/engine"
	"github.com/harrison/dbfc/internal/models"
)

// MultiLogger forwards every event to each wrapped logger in order.
type MultiLogger struct {
	loggers []engine.Logger
}

// NewMultiLogger combines loggers; nil entries are dropped.
func NewMultiLogger(loggers ...engine.Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogRunStart(batch *models.Batch, pending int) {
	for _, l := range m.loggers {
		l.LogRunStart(batch, pending)
	}
}

func (m *MultiLogger) LogJobStart(current, total int, job models.Job, relPath string) {
	for _, l := range m.loggers {
		l.LogJobStart(current, total, job, relPath)
	}
}

func (m *MultiLogger) LogJobResult(outcome models.JobOutcome) {
	for _, l := range m.loggers {
		l.LogJobResult(outcome)
	}
}

func (m *MultiLogger) LogSummary(result models.RunResult) {
	for _, l := range m.loggers {
		l.LogSummary(result)
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogRunStart(*models.Batch, int) {}
func (n *NoOpLogger) LogJobStart(int, int, models.Job, string) {}
func (n *NoOpLogger) LogJobResult(models.JobOutcome) {}
func (n *NoOpLogger) LogSummary(models.RunResult) {}

var (
	_ engine.Logger = (*ConsoleLogger)(nil)
	_ engine.Logger = (*FileLogger)(nil)
	_ engine.Logger = (*MultiLogger)(nil)
	_ engine.Logger = (*NoOpLogger)(nil)
)
