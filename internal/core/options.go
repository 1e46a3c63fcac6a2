package core

import (
	"context"
	"time"

	"github.com/giantswarm/procpool/internal/sentinel"
)

// ErrNoReadyTest is returned by the default readiness test. A definition
// that is started without ReadyTest therefore never becomes ready.
const ErrNoReadyTest = sentinel.Error("no readiness check defined")

// Default timeouts applied to every new Definition.
const (
	DefaultReadyTimeout = 10 * time.Second
	DefaultTermTimeout  = 10 * time.Second
	DefaultKillTimeout  = 10 * time.Second
)

// ReadyTest decides whether inst is ready. Returning an error aborts the
// readiness wait.
type ReadyTest func(ctx context.Context, inst Instance) (bool, error)

// RefreshAction is run by Definition.Refresh against an instance that is
// already running.
type RefreshAction func(ctx context.Context, inst Instance) error

// Options are the non-identity settings of a Definition. They are not part
// of the fingerprint and are re-applied to cached instances on every
// resolution.
type Options struct {
	ReadyTimeout  time.Duration
	TermTimeout   time.Duration
	KillTimeout   time.Duration
	ReadyTest     ReadyTest
	RefreshAction RefreshAction
	Logging       bool
}

// OptionFunc adjusts Options. Extensions use it to contribute settings.
type OptionFunc func(*Options)

// DefaultOptions returns the options a new Definition starts with.
func DefaultOptions() Options {
	return Options{
		ReadyTimeout: DefaultReadyTimeout,
		TermTimeout:  DefaultTermTimeout,
		KillTimeout:  DefaultKillTimeout,
		ReadyTest: func(context.Context, Instance) (bool, error) {
			return false, ErrNoReadyTest
		},
		RefreshAction: func(ctx context.Context, inst Instance) error {
			return inst.Restart(ctx)
		},
	}
}
