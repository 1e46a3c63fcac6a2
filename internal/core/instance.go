package core

import (
	"context"
	"time"
)

// Instance is a materialized, externally managed process handle. The pool
// never spawns or kills processes itself; it consumes this contract.
//
// AfterStateChange listeners are invoked synchronously, in registration
// order, on every transition. Implementations must not hold internal locks
// while invoking them, because pool listeners may stop other instances.
type Instance interface {
	Name() string

	State() State
	StateChangeTime() time.Time
	StateLog() []StateRecord
	Running() bool
	Dead() bool
	Failed() bool
	Jammed() bool

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	AfterStateChange(fn func(State))

	// ResetOptions applies new options to a live instance without
	// recreating or restarting it.
	ResetOptions(opts Options)

	LogFile() string
	// ExitCode returns the exit status of the last run, or -1 if unknown.
	ExitCode() int
	Command() string
	WorkingDirectory() string
}

// InstanceParams carries everything an InstanceType needs to build an
// instance. Arguments are already rendered to strings; file arguments are
// absolute paths.
type InstanceParams struct {
	Name             string
	Path             string
	Arguments        []string
	WorkingDirectory string
	Options          Options
}

// InstanceType constructs instances. TypeName is folded into fingerprints,
// so two types must never share a name.
type InstanceType interface {
	TypeName() string
	New(params InstanceParams) (Instance, error)
}

// Extension is a capability composed onto an instance once, at creation
// time. Apply returns the decorated instance that the pool will store; it
// may return inst itself. Name is folded into fingerprints.
type Extension interface {
	Name() string
	Apply(inst Instance) (Instance, error)
}
