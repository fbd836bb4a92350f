package logging

import "log/slog"

// Logger is the structured logging interface used throughout the
// daemon. *slog.Logger satisfies it directly; the interface exists so
// packages can accept a logger without binding to a concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLogger returns the process-wide default logger.
func DefaultLogger() Logger {
	return slog.Default()
}
