// Package logger defines the logging contract shared by the client library
// and its binaries.
package logger

// AppLogger is the logging interface every component of the client accepts.
type AppLogger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, args ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, args ...any)

	// Warn logs a message at WarnLevel.
	Warn(msg string, args ...any)

	// Error logs a message at ErrorLevel.
	Error(msg string, args ...any)

	// With returns a new logger with the given key-value pairs added to its context.
	With(args ...any) AppLogger
}

// nopLogger discards everything. It is the default for library callers that
// do not wire a logger of their own.
type nopLogger struct{}

// NewNopLogger returns an AppLogger that discards all output.
func NewNopLogger() AppLogger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...any) {}

func (nopLogger) Info(string, ...any) {}

func (nopLogger) Warn(string, ...any) {}

func (nopLogger) Error(string, ...any) {}

func (n nopLogger) With(...any) AppLogger { return n }
