// Package logger configures the logrus logger shared by brokerfeed packages.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	once   sync.Once
	global *logrus.Logger
)

// Options tunes the logger returned by New.
type Options struct {
	// Level overrides the LOG_LEVEL environment variable when not empty.
	Level string
	// File, when set, sends logs to a rotated file instead of stderr.
	File string
	// MaxSizeMB is the rotation size of File (default 10).
	MaxSizeMB int
	// Text selects the human readable formatter instead of JSON.
	Text bool
}

// New builds a logger according to opts.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetLevel(parseLevel(opts.Level))

	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}
	if opts.Text {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
			CallerPrettyfier: callerPrettyfier,
		})
	}
	l.SetOutput(output(opts))
	return l
}

func output(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stderr
	}
	size := opts.MaxSizeMB
	if size <= 0 {
		size = 10
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// parseLevel returns the level named by s, or by LOG_LEVEL when s is empty.
// Unknown names fall back to info.
func parseLevel(s string) logrus.Level {
	if s == "" {
		s = os.Getenv("LOG_LEVEL")
	}
	if s == "" {
		return logrus.InfoLevel
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(s))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Default returns the process wide logger, created on first use.
func Default() *logrus.Logger {
	once.Do(func() {
		if global == nil {
			global = New(Options{})
		}
	})
	return global
}

// SetDefault replaces the process wide logger. The CLI calls it once flags are parsed.
func SetDefault(l *logrus.Logger) {
	once.Do(func() {})
	global = l
}

// Discard returns a logger that drops everything, handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
