// Package logger wraps charmbracelet/log with the level and output
// plumbing the service needs.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	Logger  *log.Logger
	logSink func(level, message string) // optional diagnostics forwarder
)

func init() {
	Logger = log.New(os.Stderr)

	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "INFO":
		Logger.SetLevel(log.InfoLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	default:
		Logger.SetLevel(log.InfoLevel)
	}
}

// SetLevel overrides the level picked up from the environment.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "INFO":
		Logger.SetLevel(log.InfoLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	}
}

// SetLogFile redirects output to a file, creating parent directories as
// needed. Used in service mode where stderr goes nowhere useful.
func SetLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	Logger.SetOutput(f)
	return nil
}

// SetOutput redirects output to an arbitrary writer (tests).
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetSink installs a callback receiving every log line, for forwarding
// to diagnostics consumers.
func SetSink(sink func(level, message string)) {
	logSink = sink
}

func forward(level, message string) {
	if logSink != nil {
		logSink(level, message)
	}
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
	if Logger.GetLevel() <= log.DebugLevel {
		forward("DEBUG", fmt.Sprintf("%v", msg))
	}
}

func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
	forward("INFO", fmt.Sprintf("%v", msg))
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
	forward("WARN", fmt.Sprintf("%v", msg))
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
	forward("ERROR", fmt.Sprintf("%v", msg))
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	forward("FATAL", fmt.Sprintf("%v", msg))
	Logger.Fatal(msg, keyvals...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
	if Logger.GetLevel() <= log.DebugLevel {
		forward("DEBUG", fmt.Sprintf(format, args...))
	}
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
	forward("INFO", fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
	forward("WARN", fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
	forward("ERROR", fmt.Sprintf(format, args...))
}

func Fatalf(format string, args ...interface{}) {
	forward("FATAL", fmt.Sprintf(format, args...))
	Logger.Fatalf(format, args...)
}
