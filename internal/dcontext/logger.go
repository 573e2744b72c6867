// Package dcontext provides a context-scoped logrus logger. Components pull
// their logger out of the context so that callers can thread operation
// specific fields through storage calls without the library holding logging
// state of its own.
package dcontext

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger   *logrus.Entry = logrus.NewEntry(logrus.StandardLogger())
	defaultLoggerMu sync.RWMutex
)

// Logger provides a leveled-logging interface.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithError(err error) *logrus.Entry
}

type loggerKey struct{}

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger from the current context, if present, and the
// process default logger otherwise.
func GetLogger(ctx context.Context) Logger {
	return getLogrusLogger(ctx)
}

// GetLoggerWithField returns the context logger with the given field set,
// without affecting the context.
func GetLoggerWithField(ctx context.Context, key, value interface{}) Logger {
	return getLogrusLogger(ctx).WithField(fmt.Sprint(key), value)
}

// SetDefaultLogger sets the logger upon which context-less loggers are
// based. Intended for configuration time.
func SetDefaultLogger(logger *logrus.Entry) {
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
}

func getLogrusLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return logger
	}

	defaultLoggerMu.RLock()
	logger := defaultLogger
	defaultLoggerMu.RUnlock()
	return logger
}
