package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seike460/s3scan/internal/config"
)

// LogLevel orders log severity from most to least verbose.
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is one structured log record. RunID correlates every entry
// emitted by one process invocation, including the ones written by
// per-worker child loggers.
type LogEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component,omitempty"`
	RunID      string                 `json:"run_id"`
	File       string                 `json:"file,omitempty"`
	Line       int                    `json:"line,omitempty"`
	Function   string                 `json:"function,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	PID        int                    `json:"pid"`
	Hostname   string                 `json:"hostname"`
}

// Logger is the structured logger shared by every component of one scan
// run. Every call writes synchronously: the engine is a one-shot process,
// so there is no benefit to batching writes the way a long-lived server
// might.
type Logger struct {
	mu        sync.RWMutex
	level     LogLevel
	format    string // "text" or "json"
	outputs   []io.Writer
	component string
	runID     string
	fields    map[string]interface{}
	hooks     []Hook
	hostname  string
	pid       int
}

// Hook observes every log entry at a given set of levels.
type Hook interface {
	Fire(entry *LogEntry) error
	Levels() []LogLevel
}

// MetricsHook counts log entries per level and component, readable through
// GetMetrics.
type MetricsHook struct {
	mu      sync.RWMutex
	metrics map[string]int64
}

// NewLogger creates a logger configured from cfg.Logging, stamped with a
// fresh run ID that every subsequent entry (and every derived child
// logger) carries.
func NewLogger(cfg *config.Config) *Logger {
	hostname, _ := os.Hostname()

	logger := &Logger{
		level:     parseLogLevel(cfg.Logging.Level),
		format:    cfg.Logging.Format,
		outputs:   []io.Writer{os.Stderr},
		runID:     uuid.NewString(),
		fields:    make(map[string]interface{}),
		hooks:     make([]Hook, 0),
		hostname:  hostname,
		pid:       os.Getpid(),
	}

	if cfg.Logging.File != "" {
		if err := logger.addFileOutput(cfg.Logging.File); err != nil {
			fmt.Fprintf(os.Stderr, "failed to add log file output: %v\n", err)
		}
	}

	logger.AddHook(&MetricsHook{metrics: make(map[string]int64)})

	return logger
}

// RunID returns the correlation ID stamped on every entry this logger (or
// any logger derived from it) writes.
func (l *Logger) RunID() string {
	return l.runID
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetComponent returns a derived logger tagging every entry with
// component, e.g. "lister" or "worker.3".
func (l *Logger) SetComponent(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	newLogger := *l
	newLogger.component = component
	return &newLogger
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newLogger := *l
	newLogger.fields = make(map[string]interface{})
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	newLogger.fields[key] = value
	return &newLogger
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newLogger := *l
	newLogger.fields = make(map[string]interface{})
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return &newLogger
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) WithDuration(duration time.Duration) *Logger {
	return l.WithField("duration", duration.String())
}

func (l *Logger) Trace(msg string, args ...interface{}) {
	l.log(TRACE, fmt.Sprintf(msg, args...))
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, fmt.Sprintf(msg, args...))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, fmt.Sprintf(msg, args...))
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(msg, args...))
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(FATAL, fmt.Sprintf(msg, args...))
	os.Exit(1)
}

// AddHook registers a hook; it observes every entry written afterward.
func (l *Logger) AddHook(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

func (l *Logger) AddOutput(output io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, output)
}

func (l *Logger) log(level LogLevel, message string) {
	l.mu.RLock()
	if level < l.level {
		l.mu.RUnlock()
		return
	}
	l.mu.RUnlock()

	pc, file, line, ok := runtime.Caller(2)
	var function string
	if ok {
		function = runtime.FuncForPC(pc).Name()
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   message,
		Component: l.component,
		RunID:     l.runID,
		File:      file,
		Line:      line,
		Function:  function,
		Fields:    l.copyFields(),
		PID:       l.pid,
		Hostname:  l.hostname,
	}

	if level >= ERROR {
		entry.StackTrace = l.captureStackTrace()
	}

	l.executeHooks(&entry, level)
	l.writeEntry(&entry)
}

func (l *Logger) writeEntry(entry *LogEntry) {
	var output string

	if l.format == "json" {
		data, _ := json.Marshal(entry)
		output = string(data) + "\n"
	} else {
		output = l.formatTextEntry(entry)
	}

	l.mu.RLock()
	for _, writer := range l.outputs {
		writer.Write([]byte(output))
	}
	l.mu.RUnlock()
}

func (l *Logger) formatTextEntry(entry *LogEntry) string {
	timestamp := entry.Timestamp.Format("2006-01-02 15:04:05.000")

	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", timestamp))
	parts = append(parts, fmt.Sprintf("[%s]", entry.Level))
	parts = append(parts, fmt.Sprintf("[%s]", entry.RunID[:8]))

	if entry.Component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", entry.Component))
	}

	parts = append(parts, entry.Message)

	if len(entry.Fields) > 0 {
		var fields []string
		for k, v := range entry.Fields {
			fields = append(fields, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("fields={%s}", strings.Join(fields, ", ")))
	}

	result := strings.Join(parts, " ")

	if entry.StackTrace != "" {
		result += "\n" + entry.StackTrace
	}

	return result + "\n"
}

func (l *Logger) executeHooks(entry *LogEntry, level LogLevel) {
	l.mu.RLock()
	hooks := make([]Hook, len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.RUnlock()

	for _, hook := range hooks {
		for _, hookLevel := range hook.Levels() {
			if hookLevel == level {
				if err := hook.Fire(entry); err != nil {
					fmt.Fprintf(os.Stderr, "log hook failed: %v\n", err)
				}
				break
			}
		}
	}
}

func (l *Logger) addFileOutput(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.AddOutput(file)
	return nil
}

func (l *Logger) copyFields() map[string]interface{} {
	if len(l.fields) == 0 {
		return nil
	}

	fields := make(map[string]interface{})
	for k, v := range l.fields {
		fields[k] = v
	}
	return fields
}

func (l *Logger) captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (h *MetricsHook) Fire(entry *LogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.metrics[entry.Level]++
	if entry.Component != "" {
		h.metrics[fmt.Sprintf("%s_%s", entry.Component, entry.Level)]++
	}

	return nil
}

func (h *MetricsHook) Levels() []LogLevel {
	return []LogLevel{TRACE, DEBUG, INFO, WARN, ERROR, FATAL}
}

func (h *MetricsHook) GetMetrics() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	metrics := make(map[string]int64)
	for k, v := range h.metrics {
		metrics[k] = v
	}
	return metrics
}

var defaultLogger *Logger

// InitializeLogger sets the package-level logger used by the top-level
// convenience functions below.
func InitializeLogger(cfg *config.Config) {
	defaultLogger = NewLogger(cfg)
}

func GetLogger() *Logger {
	if defaultLogger == nil {
		defaultLogger = NewLogger(config.Default())
	}
	return defaultLogger
}

func Trace(msg string, args ...interface{}) { GetLogger().Trace(msg, args...) }
func Debug(msg string, args ...interface{}) { GetLogger().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { GetLogger().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { GetLogger().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { GetLogger().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { GetLogger().Fatal(msg, args...) }

func WithField(key string, value interface{}) *Logger  { return GetLogger().WithField(key, value) }
func WithFields(fields map[string]interface{}) *Logger { return GetLogger().WithFields(fields) }
func WithError(err error) *Logger                       { return GetLogger().WithError(err) }
