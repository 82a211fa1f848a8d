package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
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

func (l Level) charm() log.Level {
	switch l {
	case DEBUG:
		return log.DebugLevel
	case WARN:
		return log.WarnLevel
	case ERROR:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", s)
	}
}

// Logger writes structured key/value logs to stderr and a daily rotated file.
// Children created with With share the parent's output and level.
type Logger struct {
	root   *shared
	fields []interface{}
}

type shared struct {
	mu    sync.RWMutex
	level Level
	out   *log.Logger
	file  *rotatingFile
}

// Config holds logger configuration
type Config struct {
	LogDir        string
	Level         Level
	RetentionDays int
	Console       bool // also write to stderr
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		LogDir:        filepath.Join(xdg.DataHome, "AudioSwitch", "logs"),
		Level:         INFO,
		RetentionDays: 7,
		Console:       true,
	}
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	rf := &rotatingFile{
		logDir:        config.LogDir,
		retentionDays: config.RetentionDays,
	}
	if err := rf.rotate(time.Now()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var w io.Writer = rf
	if config.Console {
		w = io.MultiWriter(os.Stderr, rf)
	}

	l := NewWriter(w, config.Level)
	l.root.file = rf
	return l, nil
}

// NewWriter creates a logger that writes only to w
func NewWriter(w io.Writer, level Level) *Logger {
	out := log.NewWithOptions(w, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})
	return &Logger{root: &shared{level: level, out: out}}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWriter(io.Discard, ERROR)
}

// With returns a child logger that adds keyvals to every entry
func (l *Logger) With(keyvals ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(keyvals))
	fields = append(fields, l.fields...)
	fields = append(fields, keyvals...)
	return &Logger{root: l.root, fields: fields}
}

func (l *Logger) kv(keyvals []interface{}) []interface{} {
	if len(l.fields) == 0 {
		return keyvals
	}
	out := make([]interface{}, 0, len(l.fields)+len(keyvals))
	out = append(out, l.fields...)
	return append(out, keyvals...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.root.mu.RLock()
	defer l.root.mu.RUnlock()
	l.root.out.Debug(msg, l.kv(keyvals)...)
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.root.mu.RLock()
	defer l.root.mu.RUnlock()
	l.root.out.Info(msg, l.kv(keyvals)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.root.mu.RLock()
	defer l.root.mu.RUnlock()
	l.root.out.Warn(msg, l.kv(keyvals)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.root.mu.RLock()
	defer l.root.mu.RUnlock()
	l.root.out.Error(msg, l.kv(keyvals)...)
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.root.file == nil {
		return nil
	}
	return l.root.file.Close()
}

// SetLevel sets the logging level for this logger and all its children
func (l *Logger) SetLevel(level Level) {
	l.root.mu.Lock()
	defer l.root.mu.Unlock()

	l.root.level = level
	l.root.out.SetLevel(level.charm())
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	l.root.mu.RLock()
	defer l.root.mu.RUnlock()

	return l.root.level
}

// rotatingFile is an io.Writer that switches to a new file each day
type rotatingFile struct {
	mu            sync.Mutex
	file          *os.File
	logDir        string
	currentDay    string
	retentionDays int
}

// FileName returns the log file name for a day
func FileName(t time.Time) string {
	return fmt.Sprintf("audioswitch-%s.log", t.Format("20060102"))
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Format("20060102") != r.currentDay || r.file == nil {
		if err := r.rotateLocked(now); err != nil {
			// Can't log this error since logging is failing
			fmt.Fprintf(os.Stderr, "Failed to rotate log: %v\n", err)
			return 0, err
		}
	}
	return r.file.Write(p)
}

func (r *rotatingFile) rotate(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotateLocked(now)
}

func (r *rotatingFile) rotateLocked(now time.Time) error {
	today := now.Format("20060102")
	if r.currentDay == today && r.file != nil {
		return nil
	}

	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	if err := os.MkdirAll(r.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(r.logDir, FileName(now))
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	r.file = file
	r.currentDay = today

	// 古いログの削除に失敗しても続行する
	if err := r.cleanOldLogs(now); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clean old logs: %v\n", err)
	}
	return nil
}

// cleanOldLogs deletes log files older than retentionDays
func (r *rotatingFile) cleanOldLogs(now time.Time) error {
	if r.retentionDays <= 0 {
		return nil
	}
	cutoffDate := now.AddDate(0, 0, -r.retentionDays)

	entries, err := os.ReadDir(r.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffDate) {
			os.Remove(filepath.Join(r.logDir, entry.Name()))
		}
	}

	return nil
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
