// Package logging provides structured logging for the EduSync client.
package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. The environment selects the
// formatter: JSON for production/staging, colored text otherwise.
func Init(out io.Writer, level, environment string) {
	once.Do(func() {
		global = newLogger(out, level, environment)
	})
}

// Get returns the global logger instance, initializing a default
// text logger at info level if Init was never called.
func Get() *logrus.Logger {
	if global == nil {
		Init(logrus.StandardLogger().Out, "info", "development")
	}
	return global
}

func newLogger(out io.Writer, level, environment string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	switch strings.ToLower(environment) {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return l
}

// Fields is an alias for logrus.Fields to keep call sites short.
type Fields = logrus.Fields

// Convenience functions using the global logger.

func Debug(message string, fields ...Fields) {
	Get().WithFields(merge(fields)).Debug(message)
}

func Info(message string, fields ...Fields) {
	Get().WithFields(merge(fields)).Info(message)
}

func Warn(message string, fields ...Fields) {
	Get().WithFields(merge(fields)).Warn(message)
}

func Error(message string, err error, fields ...Fields) {
	entry := Get().WithFields(merge(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Get().WithField("component", name)
}

func merge(fields []Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return fields[0]
	}
	merged := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}
