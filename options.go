package procpool

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("procpool: %s must not be empty", name))
	}
}

// PoolOption configures a Pool during construction via NewPool or
// SharedPool.
//
// With* functions panic on invalid input. Option values are typically
// constants in test setup code, so an invalid value is a programmer error;
// the pattern mirrors [regexp.MustCompile].
type PoolOption func(*poolConfig)

// WithMaxRunning sets the size of the kept window: how many running
// instances stay up once the test cycle that used them ends. Instances
// used in the current cycle are never stopped, whatever the window size.
// A value of 0 keeps nothing: instances are stopped as soon as a cycle
// ends without using them.
//
// Default: 4.
//
// Panics if n < 0.
func WithMaxRunning(n int) PoolOption {
	if n < 0 {
		panic(fmt.Sprintf("procpool: max running must not be negative, got %d", n))
	}
	return func(c *poolConfig) {
		c.MaxRunning = n
	}
}

// WithBaseDataDir sets the parent of the working directories derived for
// definitions without an explicit one. Useful in CI when several projects
// share a machine.
//
// Default: filepath.Join(os.TempDir(), "procpool").
//
// Panics if dir is empty.
func WithBaseDataDir(dir string) PoolOption {
	requireNonEmpty("base data directory", dir)
	return func(c *poolConfig) {
		c.BaseDataDir = dir
	}
}

// WithProjectDir sets the directory relative file arguments are resolved
// against.
//
// Default: the working directory of the test binary when the pool is
// created.
//
// Panics if dir is empty.
func WithProjectDir(dir string) PoolOption {
	requireNonEmpty("project directory", dir)
	return func(c *poolConfig) {
		c.ProjectDir = dir
	}
}

// WithLogging sets the default logging option of new definitions. With
// logging on, every output line of a process is also sent to the procpool
// logger.
//
// Default: false.
func WithLogging(enabled bool) PoolOption {
	return func(c *poolConfig) {
		c.Logging = enabled
	}
}

// WithStatsDB enables Pool.SaveStats, which appends the pool counters to
// the SQLite database at path.
//
// Panics if path is empty.
func WithStatsDB(path string) PoolOption {
	requireNonEmpty("stats database path", path)
	return func(c *poolConfig) {
		c.StatsDB = path
	}
}

// WithMeterProvider sets the provider of the pool's start and eviction
// counters.
//
// Default: the global otel provider.
//
// Panics if mp is nil.
func WithMeterProvider(mp metric.MeterProvider) PoolOption {
	if mp == nil {
		panic("procpool: meter provider must not be nil")
	}
	return func(c *poolConfig) {
		c.MeterProvider = mp
	}
}

// WithInstanceType sets the instance type of definitions created with
// Pool.Define.
//
// Default: ProcessType, which runs the executable with os/exec.
//
// Panics if t is nil.
func WithInstanceType(t InstanceType) PoolOption {
	if t == nil {
		panic("procpool: instance type must not be nil")
	}
	return func(c *poolConfig) {
		c.DefaultType = t
	}
}
