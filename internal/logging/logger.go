package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	loggerMu      sync.Mutex
	initialized   bool
)

// LogLevel represents logging levels
type LogLevel string

const (
	// LogLevelDebug is for detailed debug information
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is for general operational information
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is for warning conditions that should be addressed
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is for error conditions that prevent normal operation
	LogLevelError LogLevel = "error"
)

// Config holds logging configuration
type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSONFormat bool
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      LogLevelInfo,
		Output:     os.Stdout,
		JSONFormat: false,
	}
}

// ParseLevel maps a level name to a LogLevel, falling back to info
func ParseLevel(name string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(name))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Initialize sets up the logger with the given configuration
func Initialize(cfg *Config) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	initialize(cfg)
}

func initialize(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}

	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
	initialized = true
}

// GetLogger returns the default logger
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if !initialized {
		initialize(nil)
	}

	return defaultLogger
}

// Debug logs a message at debug level
func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// Info logs a message at info level
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Warn logs a message at warn level
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Error logs a message at error level
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// WithFields adds multiple fields to the logger
func WithFields(fields map[string]any) *slog.Logger {
	logger := GetLogger()
	for k, v := range fields {
		logger = logger.With(k, v)
	}
	return logger
}
