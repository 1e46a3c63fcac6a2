package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger, stored as an atomic pointer so pools and
// process waiters can read it while SetLogger runs. A nil value means no
// custom logger has been set.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() with the procpool component attribute.
// A later slog.SetDefault is only picked up after SetLogger(nil).
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the logger set with SetLogger, or the cached default.
// It is safe to call from multiple goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "procpool")
}

// SetLogger replaces the package-level logger. A nil l restores the default,
// re-derived from slog.Default() on the next Logger call.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
