package logger

import (
	"os"
	"sync/atomic"

	charm "github.com/charmbracelet/log"
)

// defaultLogger is the global default Logger instance stored atomically.
var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(NewLogger(charm.Default()))
}

// Default returns the global default Logger instance.
func Default() *Logger {
	return defaultLogger.Load().(*Logger)
}

// SetDefault sets a new global default Logger instance.
func SetDefault(logger *Logger) {
	if logger != nil {
		defaultLogger.Store(logger)
	}
}

// New creates a new Logger writing to stderr.
func New() *Logger {
	return NewLoggerWithOutput(os.Stderr)
}

// Trace logs at trace level on the default logger.
func Trace(msg interface{}, keyvals ...interface{}) {
	Default().Trace(msg, keyvals...)
}

// Tracef logs a formatted trace message on the default logger.
func Tracef(format string, args ...interface{}) {
	Default().Tracef(format, args...)
}

// Debug logs at debug level on the default logger.
func Debug(msg interface{}, keyvals ...interface{}) {
	Default().Debug(msg, keyvals...)
}

// Info logs at info level on the default logger.
func Info(msg interface{}, keyvals ...interface{}) {
	Default().Info(msg, keyvals...)
}

// Warn logs at warn level on the default logger.
func Warn(msg interface{}, keyvals ...interface{}) {
	Default().Warn(msg, keyvals...)
}

// Error logs at error level on the default logger.
func Error(msg interface{}, keyvals ...interface{}) {
	Default().Error(msg, keyvals...)
}

// With returns a child of the default logger carrying the given key/value pairs.
func With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: Default().With(keyvals...)}
}
