package procpool

import (
	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/netutil"
	"github.com/giantswarm/procpool/internal/process"
)

// Sentinel errors for error inspection with errors.Is.
const (
	// ErrDefinitionFrozen is wrapped in the panic raised when a definition
	// is modified after it produced an instance.
	ErrDefinitionFrozen = core.ErrDefinitionFrozen

	// ErrNoReadyTest is returned by Start when the definition has no ready
	// test.
	ErrNoReadyTest = core.ErrNoReadyTest

	// ErrProcessExited is returned by Start when the process exits before
	// it becomes ready.
	ErrProcessExited = process.ErrProcessExited

	// ErrJammed is returned by Stop when a process survives SIGKILL.
	ErrJammed = process.ErrJammed

	// ErrAlreadyStarted is returned by Start while another Start of the
	// same instance is in progress.
	ErrAlreadyStarted = process.ErrAlreadyStarted

	// ErrPortExhausted is returned when the server extension cannot find a
	// free port.
	ErrPortExhausted = netutil.ErrPortExhausted
)
