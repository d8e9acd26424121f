package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger represents the application logger
type Logger struct {
	*logrus.Logger
	mu sync.RWMutex
}

// LogLevel represents log levels
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// LogFormat represents log output formats
type LogFormat string

const (
	JSONFormat LogFormat = "json"
	TextFormat LogFormat = "text"
)

// Config represents logger configuration
type Config struct {
	Level       LogLevel
	Format      LogFormat
	Output      string // file path or "stdout"
	Environment string
}

var (
	instance *Logger
	once     sync.Once

	// fallback is used before Init so library code and tests can log freely.
	fallback = &Logger{Logger: logrus.StandardLogger()}
)

// Init initializes the global logger
func Init() {
	once.Do(func() {
		instance = NewLogger(getLoggerConfig())
	})
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	logger := &Logger{
		Logger: logrus.New(),
	}

	logger.SetLevel(getLogrusLevel(config.Level))

	if config.Format == JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "caller",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				filename := filepath.Base(f.File)
				return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filename, f.Line)
			},
		})
	}

	if config.Output == "stdout" || config.Output == "" {
		logger.SetOutput(os.Stdout)
	} else {
		writer, err := setupFileOutput(config)
		if err != nil {
			log.Printf("Failed to setup file output: %v", err)
			logger.SetOutput(os.Stdout)
		} else {
			logger.SetOutput(writer)
		}
	}

	logger.SetReportCaller(config.Level == DebugLevel)

	return logger
}

// setupFileOutput opens the log file, mirroring to stdout in development
func setupFileOutput(config Config) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(config.Output), 0755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	if config.Environment == "development" {
		return io.MultiWriter(file, os.Stdout), nil
	}

	return file, nil
}

// getLoggerConfig returns logger configuration from environment
func getLoggerConfig() Config {
	config := Config{
		Level:       InfoLevel,
		Format:      JSONFormat,
		Output:      "stdout",
		Environment: os.Getenv("APP_ENV"),
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = LogLevel(strings.ToLower(level))
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = LogFormat(strings.ToLower(format))
	}

	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		config.Output = output
	}

	return config
}

// getLogrusLevel converts LogLevel to logrus.Level
func getLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func get() *Logger {
	if instance != nil {
		return instance
	}
	return fallback
}

// Global logger functions

func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func Info(args ...interface{}) {
	get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Warn(args ...interface{}) {
	get().Warn(args...)
}

func Fatalf(format string, args ...interface{}) {
	get().Fatalf(format, args...)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return get().WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return get().WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return get().WithError(err)
}

// Context-aware logging functions

// LogRequest logs HTTP request information
func LogRequest(method, path, ip, userAgent string, duration time.Duration, statusCode int) {
	entry := WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"ip":          ip,
		"user_agent":  userAgent,
		"duration_ms": duration.Milliseconds(),
		"status_code": statusCode,
		"type":        "request",
	})

	switch {
	case statusCode >= 500:
		entry.Error("HTTP Request")
	case statusCode >= 400:
		entry.Warn("HTTP Request")
	default:
		entry.Info("HTTP Request")
	}
}

// LogUserAction logs user actions
func LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"user_id": userID,
		"action":  action,
		"type":    "user_action",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("User Action")
}

// LogComplaintEvent logs complaint lifecycle events
func LogComplaintEvent(event, complaintID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":        event,
		"complaint_id": complaintID,
		"user_id":      userID,
		"type":         "complaint_event",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("Complaint Event")
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(event, userID, ip string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"user_id": userID,
		"ip":      ip,
		"type":    "security_event",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Warn("Security Event")
}

// LogError logs detailed error information
func LogError(err error, context string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"error":   err.Error(),
		"context": context,
		"type":    "error_detail",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	if os.Getenv("APP_ENV") == "development" {
		fields["stack_trace"] = getStackTrace()
	}

	WithFields(fields).Error("Application Error")
}

// LogPerformance logs slow external calls
func LogPerformance(operation string, duration time.Duration, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
		"type":        "performance",
	}

	for k, v := range metadata {
		fields[k] = v
	}

	if duration > 5*time.Second {
		WithFields(fields).Warn("Slow Operation")
	} else {
		WithFields(fields).Debug("Performance Metric")
	}
}

// getStackTrace returns stack trace for debugging
func getStackTrace() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// SetLevel changes the logger level at runtime
func SetLevel(level LogLevel) {
	l := get()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SetLevel(getLogrusLevel(level))
}

// SetOutput redirects the active logger, mostly for tests
func SetOutput(w io.Writer) {
	l := get()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Logger.SetOutput(w)
}

// Close closes the logger (useful for file outputs)
func Close() error {
	if instance != nil {
		if file, ok := instance.Out.(*os.File); ok && file != os.Stdout && file != os.Stderr {
			return file.Close()
		}
	}
	return nil
}
