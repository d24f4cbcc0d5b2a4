// pkg/logging/logging.go - timestamped logging package for InstallCheck
//
// Each run writes into its own YYYY-MM-DD-HHMMss directory under the base
// log directory:
// - installcheck.log: human readable lines
// - events.jsonl: one JSON LogEntry per line for external tooling
// Old run directories are pruned on start according to RetentionPolicy.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/windowsadmins/installcheck/pkg/config"
	"github.com/windowsadmins/installcheck/pkg/version"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config LogLevel string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LogEntry is one line of events.jsonl.
type LogEntry struct {
	Time       int64                  `json:"time"`
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	PID        int64                  `json:"pid"`
	Hostname   string                 `json:"hostname"`
	Version    string                 `json:"version"`
	SessionID  string                 `json:"session_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// RetentionPolicy defines log retention rules
type RetentionPolicy struct {
	MaxRuns    int // Keep the newest N run directories
	MaxAgeDays int // Delete run directories older than this
}

// LoggerConfig holds configuration for the logger.
// An empty BaseDir disables file output.
type LoggerConfig struct {
	BaseDir       string
	Component     string
	SessionID     string
	Level         LogLevel
	Retention     RetentionPolicy
	EnableJSON    bool
	EnableConsole bool
	Console       io.Writer
}

// Logger encapsulates the logging outputs for one run.
type Logger struct {
	mu       sync.RWMutex
	logger   *log.Logger
	logLevel LogLevel
	logFile  *os.File
	jsonFile *os.File
	config   LoggerConfig
	logDir   string
	hostname string
}

var (
	instance *Logger
	once     sync.Once
)

// DefaultRetentionPolicy returns the default retention.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxRuns:    20,
		MaxAgeDays: 30,
	}
}

// Init initializes the singleton Logger from the application configuration.
// It must be called before any logging functions are used.
func Init(cfg *config.Configuration) error {
	level := ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = LevelDebug
	}
	return InitWithConfig(LoggerConfig{
		BaseDir:       cfg.LogDir,
		Component:     "installcheck",
		SessionID:     generateSessionID(time.Now()),
		Level:         level,
		Retention:     DefaultRetentionPolicy(),
		EnableJSON:    true,
		EnableConsole: cfg.Verbose || cfg.Debug,
	})
}

// InitWithConfig initializes the logger with an explicit LoggerConfig.
func InitWithConfig(logCfg LoggerConfig) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLoggerWithConfig(logCfg)
	})
	return initErr
}

func generateSessionID(now time.Time) string {
	return fmt.Sprintf("installcheck-%d-%s", now.Unix(), now.Format("2006-01-02-150405"))
}

func newLoggerWithConfig(cfg LoggerConfig) (*Logger, error) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	l := &Logger{
		config:   cfg,
		logLevel: cfg.Level,
		hostname: hostname,
	}

	var writers []io.Writer
	if cfg.BaseDir != "" {
		if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create base log directory: %w", err)
		}
		l.logDir = filepath.Join(cfg.BaseDir, time.Now().Format("2006-01-02-150405"))
		if err := os.MkdirAll(l.logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", l.logDir, err)
		}
		if err := l.openFiles(); err != nil {
			return nil, err
		}
		writers = append(writers, l.logFile)
		l.performCleanup(time.Now())
	}
	if cfg.EnableConsole {
		console := cfg.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, console)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	l.logger = log.New(io.MultiWriter(writers...), "", 0)
	return l, nil
}

func (l *Logger) openFiles() error {
	var err error
	l.logFile, err = os.OpenFile(filepath.Join(l.logDir, "installcheck.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open main log file: %w", err)
	}
	if l.config.EnableJSON {
		l.jsonFile, err = os.OpenFile(filepath.Join(l.logDir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open JSON log file: %w", err)
		}
	}
	return nil
}

// performCleanup removes old run directories based on the retention policy.
func (l *Logger) performCleanup(now time.Time) {
	entries, err := os.ReadDir(l.config.BaseDir)
	if err != nil {
		return
	}
	var runDirs []string
	for _, entry := range entries {
		// YYYY-MM-DD-HHMMss
		if entry.IsDir() && len(entry.Name()) == 17 && strings.Count(entry.Name(), "-") == 3 {
			runDirs = append(runDirs, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runDirs)))

	retention := l.config.Retention
	maxAge := time.Duration(retention.MaxAgeDays) * 24 * time.Hour
	current := filepath.Base(l.logDir)
	for i, name := range runDirs {
		if name == current {
			continue
		}
		expired := false
		if retention.MaxRuns > 0 && i >= retention.MaxRuns {
			expired = true
		}
		if ts, err := time.ParseInLocation("2006-01-02-150405", name, time.Local); err == nil && maxAge > 0 && now.Sub(ts) > maxAge {
			expired = true
		}
		if expired {
			os.RemoveAll(filepath.Join(l.config.BaseDir, name))
		}
	}
}

func (l *Logger) createLogEntry(level LogLevel, message string, properties map[string]interface{}) LogEntry {
	now := time.Now()
	return LogEntry{
		Time:       now.Unix(),
		Timestamp:  now.Format(time.RFC3339),
		Level:      level.String(),
		Message:    message,
		Component:  l.config.Component,
		PID:        int64(os.Getpid()),
		Hostname:   l.hostname,
		Version:    version.Version().Version,
		SessionID:  l.config.SessionID,
		Properties: properties,
	}
}

// CloseLogger closes all log files if they're open.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.close()
}

func (l *Logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
	if l.jsonFile != nil {
		l.jsonFile.Close()
		l.jsonFile = nil
	}
}

// logMessage writes to all configured outputs.
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.logLevel {
		return
	}

	properties := make(map[string]interface{})
	for i := 0; i+1 < len(keyValues); i += 2 {
		properties[fmt.Sprintf("%v", keyValues[i])] = keyValues[i+1]
	}
	entry := l.createLogEntry(level, message, properties)

	l.writeMainLog(entry, keyValues)
	if l.jsonFile != nil {
		if data, err := json.Marshal(entry); err == nil {
			l.jsonFile.Write(append(data, '\n'))
		}
	}
}

// writeMainLog writes the traditional "[ts] LEVEL message k=v" line.
func (l *Logger) writeMainLog(entry LogEntry, keyValues []interface{}) {
	ts := time.Unix(entry.Time, 0).Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %-5s %s", ts, entry.Level, entry.Message)

	pairs := len(keyValues) / 2
	for i := 0; i+1 < len(keyValues); i += 2 {
		if pairs > 4 {
			line += fmt.Sprintf("\n        %v: %v", keyValues[i], keyValues[i+1])
		} else {
			line += fmt.Sprintf(" %v=%v", keyValues[i], keyValues[i+1])
		}
	}
	l.logger.Println(line)
}

// LogStructured logs a message with a property map instead of key/value pairs.
func LogStructured(level LogLevel, message string, properties map[string]interface{}) {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, properties[k])
	}
	logAt(level, message, kv...)
}

func logAt(level LogLevel, message string, keyValues ...interface{}) {
	if instance == nil {
		// Uninitialized: only surface problems, keep library use quiet.
		if level <= LevelWarn {
			fmt.Fprintf(os.Stderr, "LOGGING NOT INITIALIZED: %s %s %v\n", level, message, keyValues)
		}
		return
	}
	instance.logMessage(level, message, keyValues...)
}

// Info logs informational messages.
func Info(message string, keyValues ...interface{}) {
	logAt(LevelInfo, message, keyValues...)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...interface{}) {
	logAt(LevelDebug, message, keyValues...)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...interface{}) {
	logAt(LevelWarn, message, keyValues...)
}

// Error logs error messages.
func Error(message string, keyValues ...interface{}) {
	logAt(LevelError, message, keyValues...)
}
