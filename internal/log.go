package internal

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel orders verbosity from ERROR (quietest) to TRACE.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

var levelTags = [...]string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

func (l LogLevel) String() string {
	if l < LogLevelError || int(l) >= len(levelTags) {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levelTags[l]
}

// ParseLogLevel maps a level name to its LogLevel. Unknown names yield INFO and false.
func ParseLogLevel(name string) (LogLevel, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, tag := range levelTags {
		if tag == name {
			return LogLevel(i), true
		}
	}
	return LogLevelInfo, false
}

// Logger writes leveled lines through the standard log package. A logger
// carries an optional component tag and key=value context that prefix
// every line; derived loggers never mutate their parent.
type Logger struct {
	level  LogLevel
	prefix string
}

func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level}
}

// NewDefaultLogger reads the level from LOG_LEVEL.
func NewDefaultLogger() *Logger {
	level, _ := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	return NewLogger(level)
}

// WithComponent returns a logger sharing the level whose lines are tagged with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{level: l.level, prefix: l.prefix + "[" + name + "] "}
}

// With appends a key=value pair to the line context.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{level: l.level, prefix: fmt.Sprintf("%s%s=%v ", l.prefix, key, value)}
}

// Enabled reports whether lines at level are emitted.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.level >= level
}

func (l *Logger) GetLevel() LogLevel {
	return l.level
}

func (l *Logger) logf(level LogLevel, format string, args []interface{}) {
	if !l.Enabled(level) {
		return
	}
	log.Printf("["+level.String()+"] "+l.prefix+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) { l.logf(LogLevelError, format, args) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LogLevelWarn, format, args) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LogLevelInfo, format, args) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LogLevelDebug, format, args) }
func (l *Logger) Trace(format string, args ...interface{}) { l.logf(LogLevelTrace, format, args) }

// DefaultLogger is the process-wide logger packages derive their component loggers from.
var DefaultLogger = NewDefaultLogger()
