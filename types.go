package procpool

import (
	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/process"
	"github.com/giantswarm/procpool/internal/server"
)

// Core types. See the internal/core documentation on each for details.
type (
	// Pool memoizes instances by definition fingerprint and stops the
	// ones that fall out of use.
	Pool = core.Pool

	// Definition is the mutable recipe of an instance.
	Definition = core.Definition

	// Recipe is the frozen snapshot of a Definition.
	Recipe = core.Recipe

	// Argument is one command line argument of a Definition.
	Argument = core.Argument

	// Instance is a pooled, externally managed process.
	Instance = core.Instance

	// InstanceParams carries what an InstanceType needs to build an
	// instance.
	InstanceParams = core.InstanceParams

	// InstanceType constructs instances.
	InstanceType = core.InstanceType

	// Extension decorates an instance once, at creation time.
	Extension = core.Extension

	// State is the lifecycle state of an instance.
	State = core.State

	// StateRecord is one entry of an instance's state log.
	StateRecord = core.StateRecord

	// Options are the non-identity settings of a Definition.
	Options = core.Options

	// OptionFunc adjusts Options.
	OptionFunc = core.OptionFunc

	// ReadyTest decides whether an instance is ready.
	ReadyTest = core.ReadyTest

	// RefreshAction is run by Definition.Refresh on a running instance.
	RefreshAction = core.RefreshAction

	// Stats is a snapshot of the pool counters.
	Stats = core.Stats

	// InstanceStats are the counters of one instance name.
	InstanceStats = core.InstanceStats

	// ProcessInstance is the exec-backed Instance.
	ProcessInstance = process.Instance

	// Portable is implemented by instances created with ServerExtension.
	Portable = server.Portable
)

// Lifecycle states.
const (
	StateUnknown    = core.StateUnknown
	StateNotRunning = core.StateNotRunning
	StateStarting   = core.StateStarting
	StateRunning    = core.StateRunning
	StateReady      = core.StateReady
	StateDead       = core.StateDead
	StateJammed     = core.StateJammed
	StateFailed     = core.StateFailed
)
