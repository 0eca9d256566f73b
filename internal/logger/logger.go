// Package logger provides a process-wide structured logger.
//
// It wraps a single *zap.SugaredLogger behind an atomic singleton so
// every package can log without threading a logger through every call
// site, while tests can swap the backing logger out cleanly.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var singleton atomic.Pointer[zap.SugaredLogger]

func init() {
	Initialize()
}

// Initialize (re)configures the singleton from scratch using sane
// production defaults (JSON encoding, info level). Safe to call more
// than once; later calls replace the logger.
func Initialize() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fall back to a no-op logger rather than panicking at import time.
		l = zap.NewNop()
	}
	singleton.Store(l.Sugar())
}

// SetForTest installs l as the singleton and returns a restore func.
func SetForTest(l *zap.SugaredLogger) (restore func()) {
	prev := singleton.Load()
	singleton.Store(l)
	return func() { singleton.Store(prev) }
}

// Get returns the current singleton logger.
func Get() *zap.SugaredLogger {
	return singleton.Load()
}

func Debug(args ...any)                  { Get().Debug(args...) }
func Debugf(format string, args ...any)  { Get().Debugf(format, args...) }
func Debugw(msg string, kv ...any)       { Get().Debugw(msg, kv...) }
func Info(args ...any)                   { Get().Info(args...) }
func Infof(format string, args ...any)   { Get().Infof(format, args...) }
func Infow(msg string, kv ...any)        { Get().Infow(msg, kv...) }
func Warn(args ...any)                   { Get().Warn(args...) }
func Warnf(format string, args ...any)   { Get().Warnf(format, args...) }
func Warnw(msg string, kv ...any)        { Get().Warnw(msg, kv...) }
func Error(args ...any)                  { Get().Error(args...) }
func Errorf(format string, args ...any)  { Get().Errorf(format, args...) }
func Errorw(msg string, kv ...any)       { Get().Errorw(msg, kv...) }
func Panic(args ...any)                  { Get().Panic(args...) }
func Panicf(format string, args ...any)  { Get().Panicf(format, args...) }
func Panicw(msg string, kv ...any)       { Get().Panicw(msg, kv...) }
func Fatal(args ...any)                  { Get().Fatal(args...) }
func Fatalf(format string, args ...any)  { Get().Fatalf(format, args...) }

// With returns a child logger with the given key/value pairs attached
// to every subsequent log line, used to stamp a request-scoped
// correlation id per spec.md §9's request-context redesign note.
func With(kv ...any) *zap.SugaredLogger {
	return Get().With(kv...)
}
