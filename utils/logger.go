package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel enumerates severity tiers.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLogLevel maps "debug", "info", "warn", "error" to a level (INFO when unknown).
func ParseLogLevel(s string) LogLevel {
	for i, n := range levelNames {
		if strings.EqualFold(n, s) {
			return LogLevel(i)
		}
	}
	if strings.EqualFold(s, "warning") {
		return WARN
	}
	return INFO
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case FATAL:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is a concurrency-safe, levelled logger used across the recorder.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

var (
	globalLogger *Logger
	logOnce      sync.Once
)

// InitLogger creates the singleton logger. Call once at startup.
func InitLogger(minLevel LogLevel, logFilePath string) *Logger {
	logOnce.Do(func() {
		var writers []io.Writer
		writers = append(writers, os.Stdout)

		var f *os.File
		if logFilePath != "" {
			var err error
			f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				writers = append(writers, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not open log file %s: %v\n", logFilePath, err)
			}
		}

		base := logrus.New()
		base.SetOutput(io.MultiWriter(writers...))
		base.SetLevel(minLevel.logrus())
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
		globalLogger = &Logger{entry: logrus.NewEntry(base), file: f}
	})
	return globalLogger
}

// L returns the global logger, initialising a stdout-only one at DEBUG if
// InitLogger has not been called.
func L() *Logger {
	return InitLogger(DEBUG, "")
}

// Close closes the log file, if any.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

// With returns a logger that attaches key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Debug(f string, a ...any) { l.entry.Debugf(f, a...) }
func (l *Logger) Info(f string, a ...any)  { l.entry.Infof(f, a...) }
func (l *Logger) Warn(f string, a ...any)  { l.entry.Warnf(f, a...) }
func (l *Logger) Error(f string, a ...any) { l.entry.Errorf(f, a...) }
func (l *Logger) Fatal(f string, a ...any) { l.entry.Fatalf(f, a...) }
