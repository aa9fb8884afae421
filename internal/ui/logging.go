package ui

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Fields = logrus.Fields

type Logger struct {
	Debug bool
	entry *logrus.Entry
}

func NewLogger(debug bool) *Logger {
	return NewLoggerTo(os.Stdout, debug)
}

func NewLoggerTo(w io.Writer, debug bool) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !debug,
		FullTimestamp:    debug,
		DisableQuote:     true,
	})

	base.SetLevel(logrus.InfoLevel)
	if debug {
		base.SetLevel(logrus.DebugLevel)
	}

	return &Logger{Debug: debug, entry: logrus.NewEntry(base)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, false)
}

func (l *Logger) WithFields(f Fields) *Logger {
	return &Logger{Debug: l.Debug, entry: l.entry.WithFields(f)}
}

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Debug: l.Debug, entry: l.entry.WithField(key, value)}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}
