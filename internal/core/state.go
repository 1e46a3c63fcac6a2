package core

import (
	"fmt"
	"time"
)

// State is the lifecycle state of an Instance.
type State int

const (
	// StateUnknown is the state of an instance that was never started.
	StateUnknown State = iota
	// StateNotRunning means the process was stopped on request.
	StateNotRunning
	// StateStarting is entered before the process is spawned.
	StateStarting
	// StateRunning means the process is alive but not yet confirmed ready.
	StateRunning
	// StateReady means the readiness test passed.
	StateReady
	// StateDead means the process exited without being asked to.
	StateDead
	// StateJammed means the process survived both terminate and kill.
	StateJammed
	// StateFailed means the process did not become ready in time.
	StateFailed
)

var stateNames = map[State]string{
	StateUnknown:    "unknown",
	StateNotRunning: "not_running",
	StateStarting:   "starting",
	StateRunning:    "running",
	StateReady:      "ready",
	StateDead:       "dead",
	StateJammed:     "jammed",
	StateFailed:     "failed",
}

// String returns the snake_case name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsRunning reports whether s is a running-equivalent state: the process has
// been spawned, or is about to be, and has not been observed to stop.
func (s State) IsRunning() bool {
	switch s {
	case StateStarting, StateRunning, StateReady:
		return true
	default:
		return false
	}
}

// IsBroken reports whether s is one of the states surfaced by
// Pool.FailedInstance.
func (s State) IsBroken() bool {
	switch s {
	case StateDead, StateFailed, StateJammed:
		return true
	default:
		return false
	}
}

// StateRecord is one entry of an instance's state log.
type StateRecord struct {
	State State
	Time  time.Time
}

func (r StateRecord) String() string {
	return r.Time.Format("15:04:05.000") + " " + r.State.String()
}
