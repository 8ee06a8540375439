// File: logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package logging is the ambient structured-logging adapter shared by every
// corenet component. It narrows logrus down to the handful of methods the
// core actually calls, so components never import logrus directly.

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow structured-logging collaborator used throughout
// corenet. Every method mirrors a logrus.FieldLogger printf-style variant.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
}

// Fields is a structured key/value attachment for one log entry.
type Fields map[string]interface{}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger backed by logrus, formatted as JSON and written to
// out (nil defaults to os.Stderr).
func New(level string, out io.Writer) Logger {
	l := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	if lv, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lv)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

type noOpLogger struct{}

// NoOp returns a Logger that discards everything, used as a safe default
// when callers do not wire a real logger in.
func NoOp() Logger { return noOpLogger{} }

func (noOpLogger) Debugf(string, ...interface{})        {}
func (noOpLogger) Infof(string, ...interface{})         {}
func (noOpLogger) Warnf(string, ...interface{})         {}
func (noOpLogger) Errorf(string, ...interface{})        {}
func (noOpLogger) WithField(string, interface{}) Logger { return noOpLogger{} }
func (noOpLogger) WithFields(Fields) Logger              { return noOpLogger{} }
func (noOpLogger) WithError(error) Logger                { return noOpLogger{} }
