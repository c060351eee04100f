package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel int

const (
	// DEBUG level for debug information
	DEBUG LogLevel = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp      time.Time      `json:"timestamp"`
	Level          string         `json:"level"`
	Message        string         `json:"message"`
	Agent          string         `json:"agent,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Logger provides structured logging for agents. Entries are written as one
// JSON object per line.
type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	output io.Writer
	agent  string
	fields map[string]any
}

var (
	globalLogger *Logger
	once         sync.Once
)

// New creates a new logger instance
func New() *Logger {
	return &Logger{
		level:  INFO,
		output: os.Stdout,
		fields: make(map[string]any),
	}
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	once.Do(func() {
		globalLogger = New()
	})
	return globalLogger
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// ForAgent returns a child logger stamped with an agent alias.
func (l *Logger) ForAgent(alias string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	child := &Logger{level: l.level, output: l.output, agent: alias, fields: make(map[string]any, len(l.fields))}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	return child
}

// WithField creates a new logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	child := &Logger{level: l.level, output: l.output, agent: l.agent, fields: make(map[string]any, len(l.fields)+len(fields))}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (l *Logger) log(level LogLevel, msg string, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		Agent:     l.agent,
		Fields:    l.fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if cid, ok := l.fields["conversation_id"].(string); ok {
		entry.ConversationID = cid
	}

	data, merr := json.Marshal(entry)
	if merr != nil {
		fmt.Fprintf(l.output, `{"level":"ERROR","message":"log marshal failed: %v"}`+"\n", merr)
		return
	}
	fmt.Fprintln(l.output, string(data))
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) { l.log(DEBUG, msg, nil) }

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) { l.log(DEBUG, fmt.Sprintf(format, args...), nil) }

// Info logs an info message
func (l *Logger) Info(msg string) { l.log(INFO, msg, nil) }

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) { l.log(INFO, fmt.Sprintf(format, args...), nil) }

// Warn logs a warning message
func (l *Logger) Warn(msg string) { l.log(WARN, msg, nil) }

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) { l.log(WARN, fmt.Sprintf(format, args...), nil) }

// Error logs an error message
func (l *Logger) Error(msg string, err error) { l.log(ERROR, msg, err) }

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) { l.log(ERROR, fmt.Sprintf(format, args...), nil) }

// ParseLevel parses a string log level
func ParseLevel(levelStr string) (LogLevel, error) {
	switch levelStr {
	case "DEBUG", "debug":
		return DEBUG, nil
	case "INFO", "info":
		return INFO, nil
	case "WARN", "warn", "WARNING", "warning":
		return WARN, nil
	case "ERROR", "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", levelStr)
	}
}
