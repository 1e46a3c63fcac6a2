package core

import (
	"errors"
	"fmt"

	"github.com/giantswarm/procpool/internal/netutil"
	"go.opentelemetry.io/otel/metric"
)

// PoolConfig holds configuration for a Pool. All fields are immutable after
// NewPool returns.
type PoolConfig struct {
	// MaxRunning bounds the kept window: how many running instances stay
	// protected after their test cycle ends. 0 keeps nothing: every instance
	// not used in the current cycle is stopped at the next Cleanup.
	MaxRunning int

	// BaseDataDir is the parent of the working directories the pool derives
	// for definitions without an explicit one.
	BaseDataDir string

	// ProjectDir resolves relative file arguments during fingerprinting.
	// It is captured once by the caller; the pool never consults the
	// process working directory.
	ProjectDir string

	// Logging is the default logging option of new definitions.
	Logging bool

	// DefaultType is the instance type of definitions created by Define.
	DefaultType InstanceType

	// Ports is shared by every server extension created for this pool.
	// Nil means NewPool creates one.
	Ports *netutil.PortRegistry

	// StatsDB is the SQLite file SaveStats appends to. Empty disables
	// statistics persistence.
	StatsDB string

	// MeterProvider provides the pool counters. Nil means the global
	// otel provider.
	MeterProvider metric.MeterProvider
}

// Validate checks all PoolConfig invariants and returns every violation
// joined into one error.
func (c PoolConfig) Validate() error {
	var errs []error

	if c.MaxRunning < 0 {
		errs = append(errs, fmt.Errorf("max running must not be negative, got %d", c.MaxRunning))
	}
	if c.BaseDataDir == "" {
		errs = append(errs, errors.New("base data directory must not be empty"))
	}
	if c.DefaultType == nil {
		errs = append(errs, errors.New("default instance type must not be nil"))
	}

	return errors.Join(errs...)
}
