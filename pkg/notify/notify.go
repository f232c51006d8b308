// Package notify defines the notification sink the orchestrator
// reports through. Operations emit exactly one notification per
// attempt; sinks decide how to surface it.
package notify

import "log/slog"

// Level is the severity of a notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Sink receives user-facing notifications.
type Sink interface {
	Notify(level Level, message string)
}

// Func adapts a function to the Sink interface.
type Func func(level Level, message string)

// Notify implements Sink.
func (f Func) Notify(level Level, message string) {
	f(level, message)
}

// SlogSink logs notifications through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink backed by the given logger, defaulting to
// slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Notify implements Sink.
func (s *SlogSink) Notify(level Level, message string) {
	switch level {
	case LevelError:
		s.logger.Error("notify: "+message, "level", string(level))
	case LevelWarning:
		s.logger.Warn("notify: "+message, "level", string(level))
	default:
		s.logger.Info("notify: "+message, "level", string(level))
	}
}
