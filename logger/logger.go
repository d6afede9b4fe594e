package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the logger with the given configuration
func Init() {
	InitWithWriter(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
}

// InitWithWriter initializes the default logger writing to w
func InitWithWriter(w io.Writer) {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(w).With().Timestamp().Logger()

	Default = &Logger{logger: logger}

	Default.Debug().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// getLogLevel returns the log level from environment variable
func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("KEYPRICE_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	ensure()
	Default.Info().Msgf(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	ensure()
	Default.Warn().Msgf(format, v...)
}

func ensure() {
	if Default == nil {
		Init()
	}
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	ensure()
	return Default.logger.GetLevel() <= zerolog.DebugLevel &&
		zerolog.GlobalLevel() <= zerolog.DebugLevel
}

// ForBuilder creates a logger for a specific table builder
func ForBuilder(builderName string) *Logger {
	ensure()
	return Default.WithField("builder", builderName)
}

// ForFetcher creates a logger for the page fetcher
func ForFetcher() *Logger {
	ensure()
	return Default.WithField("component", "fetcher")
}

// ForWorker creates a logger for the worker
func ForWorker() *Logger {
	ensure()
	return Default.WithField("component", "worker")
}

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger {
	ensure()
	return Default.WithField("component", "publisher")
}

// ForCache creates a logger for the cache
func ForCache() *Logger {
	ensure()
	return Default.WithField("component", "cache")
}

// ForStore creates a logger for the snapshot store
func ForStore() *Logger {
	ensure()
	return Default.WithField("component", "store")
}

// LogError is a convenience method for logging errors with context
func LogError(component string, err error, format string, v ...interface{}) {
	ensure()
	msg := fmt.Sprintf(format, v...)
	Default.Error().
		Str("component", component).
		Err(err).
		Msg(msg)
}
