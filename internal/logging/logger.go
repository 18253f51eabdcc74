// Package logging adapts logrus to the directus.Logger interface.
package logging

import (
	"io"

	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/sirupsen/logrus"
)

// Logger writes directus client diagnostics through a logrus logger.
type Logger struct {
	entry *logrus.Entry
}

var _ directus.Logger = (*Logger)(nil)

// Options configures New.
type Options struct {
	Output  io.Writer
	Verbose bool
	JSON    bool
}

// New builds a logrus logger writing to opts.Output. Verbose lowers the level
// to debug; otherwise only warnings and errors are emitted.
func New(opts Options) *Logger {
	logger := logrus.New()

	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	logger.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return Wrap(logger)
}

// Wrap adapts an existing logrus logger.
func Wrap(logger *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(logger)}
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Error(msg)
}
