package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger wraps an hclog.Logger with the structured logging methods used across the service
type Logger struct {
	logger hclog.Logger
}

// Options controls how the root logger is built
type Options struct {
	Name   string
	Level  string // trace, debug, info, warn, error
	JSON   bool
	Output io.Writer
}

// New creates a new Logger instance
func New(opts Options) *Logger {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	name := opts.Name
	if name == "" {
		name = "urlrisk"
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return &Logger{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:       name,
			Level:      level,
			Output:     output,
			JSONFormat: opts.JSON,
		}),
	}
}

// NewNop returns a Logger that discards everything
func NewNop() *Logger {
	return &Logger{logger: hclog.NewNullLogger()}
}

// Named returns a child logger with the given sub-name appended
func (l *Logger) Named(name string) *Logger {
	return &Logger{logger: l.logger.Named(name)}
}

// With returns a child logger that always includes the given key-value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(keysAndValues...)}
}

// Debug logs a debug message with structured key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Info logs an informational message with structured key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

// Warn logs a warning with structured key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

// Error logs an error message with structured key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

// Hclog exposes the underlying hclog.Logger for libraries that accept one
func (l *Logger) Hclog() hclog.Logger {
	return l.logger
}
