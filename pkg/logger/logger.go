package logger

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	charm "github.com/charmbracelet/log"
)

// LogLevel is the configured, human-facing name of a log level.
type LogLevel string

const (
	LogLevelOff     LogLevel = "Off"
	LogLevelTrace   LogLevel = "Trace"
	LogLevelDebug   LogLevel = "Debug"
	LogLevelInfo    LogLevel = "Info"
	LogLevelWarning LogLevel = "Warning"
)

// Levels re-exported so callers don't need to import charm directly.
const (
	TraceLevel = charm.DebugLevel - 1
	DebugLevel = charm.DebugLevel
	InfoLevel  = charm.InfoLevel
	WarnLevel  = charm.WarnLevel
	ErrorLevel = charm.ErrorLevel
	// OffLevel sits above every level charm emits.
	OffLevel = charm.FatalLevel + 1
)

// ErrInvalidLogLevel is returned when a configured log level is not recognized.
var ErrInvalidLogLevel = errors.New("invalid log level")

// ParseLogLevel validates a configured log level name. An empty value means Info.
func ParseLogLevel(logLevel string) (LogLevel, error) {
	if logLevel == "" {
		return LogLevelInfo, nil
	}

	switch LogLevel(logLevel) {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelOff:
		return LogLevel(logLevel), nil
	default:
		return "", fmt.Errorf("%w `%s`: supported log levels are Trace, Debug, Info, Warning, Off", ErrInvalidLogLevel, logLevel)
	}
}

// ConvertLogLevel maps a configured level onto the charm level.
func ConvertLogLevel(level LogLevel) charm.Level {
	switch level {
	case LogLevelTrace:
		return TraceLevel
	case LogLevelDebug:
		return DebugLevel
	case LogLevelWarning:
		return WarnLevel
	case LogLevelOff:
		return OffLevel
	default:
		return InfoLevel
	}
}

// Logger wraps a charm logger and adds the trace level.
type Logger struct {
	*charm.Logger
}

// NewLogger wraps an existing charm logger and installs the level styles.
func NewLogger(l *charm.Logger) *Logger {
	l.SetStyles(styles())
	return &Logger{Logger: l}
}

// NewLoggerWithOutput creates a logger writing to w.
func NewLoggerWithOutput(w io.Writer) *Logger {
	return NewLogger(charm.New(w))
}

// NewLoggerFromConfig builds a logger for the configured level and destination.
// The file may be "/dev/stderr", "/dev/stdout" or a path that is opened for append.
func NewLoggerFromConfig(level, file string) (*Logger, io.Closer, error) {
	parsed, err := ParseLogLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch file {
	case "", "/dev/stderr":
		w = os.Stderr
	case "/dev/stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(file, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", file, err)
		}
		w, closer = f, f
	}

	l := NewLoggerWithOutput(w)
	l.SetLevel(ConvertLogLevel(parsed))
	return l, closer, nil
}

// Trace logs a message at trace level.
func (l *Logger) Trace(msg interface{}, keyvals ...interface{}) {
	l.Log(TraceLevel, msg, keyvals...)
}

// Tracef logs a formatted message at trace level.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.Logf(TraceLevel, format, args...)
}

// GetLevelString returns the lowercase level name, including "trace".
func (l *Logger) GetLevelString() string {
	switch lvl := l.GetLevel(); lvl {
	case TraceLevel:
		return "trace"
	case OffLevel:
		return "off"
	default:
		return lvl.String()
	}
}

func styles() *charm.Styles {
	s := charm.DefaultStyles()
	s.Levels[TraceLevel] = lipgloss.NewStyle().
		SetString("TRCE").
		Bold(true).
		MaxWidth(4).
		Foreground(lipgloss.Color("245"))
	return s
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
