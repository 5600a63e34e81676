package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a diagnostic event
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

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

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger emits newline-delimited JSON diagnostic records. Diagnostics go to
// stderr by default so stdout stays reserved for the success payload.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level  LogLevel
	Output io.Writer
}

func New() *Logger {
	return NewWithConfig(Config{Level: INFO, Output: os.Stderr})
}

func NewWithConfig(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	zl := zerolog.New(config.Output).
		Level(config.Level.zerolog()).
		With().Timestamp().Logger()

	return &Logger{zl: zl}
}

// WithFields returns a new logger with additional context fields, given as
// alternating key/value pairs.
func (l *Logger) WithFields(keyVals ...interface{}) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(keyVals); i += 2 {
		ctx = ctx.Interface(fmt.Sprintf("%v", keyVals[i]), keyVals[i+1])
	}
	return &Logger{zl: ctx.Logger()}
}

// WithField returns a new logger with a single additional context field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(key, value)
}

func (l *Logger) Debug(msg string, keyVals ...interface{}) {
	l.log(l.zl.Debug(), msg, keyVals)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.log(l.zl.Info(), msg, kv)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.log(l.zl.Warn(), msg, kv)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	l.log(l.zl.Error(), msg, kv)
}

func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.log(l.zl.Error(), msg, kv)
	os.Exit(1)
}

func (l *Logger) log(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		ev = ev.Interface(fmt.Sprintf("%v", kv[i]), kv[i+1])
	}
	ev.Msg(msg)
}

func (l *Logger) SetLevel(level LogLevel) {
	l.zl = l.zl.Level(level.zerolog())
}

func (l *Logger) IsDebugEnabled() bool {
	return l.zl.GetLevel() <= zerolog.DebugLevel
}

// global logger instance for the convenience
var globalLogger = New()

func Debug(msg string, keyvals ...interface{}) {
	globalLogger.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	globalLogger.Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	globalLogger.Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	globalLogger.Error(msg, keyvals...)
}

func Fatal(msg string, keyvals ...interface{}) {
	globalLogger.Fatal(msg, keyvals...)
}

func WithFields(keyvals ...interface{}) *Logger {
	return globalLogger.WithFields(keyvals...)
}

func WithField(key string, value interface{}) *Logger {
	return globalLogger.WithField(key, value)
}

func SetLevel(level LogLevel) {
	globalLogger.SetLevel(level)
}

func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", level)
	}
}
