package core

import (
	"fmt"
	"io"
	"strings"
)

// FailedInstance returns the dead, failed or jammed instance whose state
// changed most recently, or nil if there is none.
//
//nolint:ireturn // Instance is the consumed process contract.
func (p *Pool) FailedInstance() Instance {
	var latest Instance
	for _, inst := range p.Instances() {
		if !(inst.Dead() || inst.Failed() || inst.Jammed()) {
			continue
		}
		if latest == nil || !inst.StateChangeTime().Before(latest.StateChangeTime()) {
			latest = inst
		}
	}
	return latest
}

// ReportFailedInstance writes the state log and diagnostics of
// FailedInstance to w.
func (p *Pool) ReportFailedInstance(w io.Writer) error {
	var b strings.Builder

	inst := p.FailedInstance()
	if inst == nil {
		b.WriteString("No process instance in failed state\n")
	} else {
		fmt.Fprintf(&b, "Last failed process instance state log: %s\n", inst.Name())
		for _, rec := range inst.StateLog() {
			fmt.Fprintf(&b, "\t%s\n", rec)
		}
		fmt.Fprintf(&b, "Working directory: %s\n", inst.WorkingDirectory())
		fmt.Fprintf(&b, "Log file: %s\n", inst.LogFile())
		fmt.Fprintf(&b, "State: %s\n", inst.State())
		fmt.Fprintf(&b, "Exit code: %d\n", inst.ExitCode())
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write failed instance report: %w", err)
	}
	return nil
}

// ReportLogs writes the log file location of every instance to w.
func (p *Pool) ReportLogs(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Process instance logs:\n")
	for _, inst := range p.Instances() {
		fmt.Fprintf(&b, "%s: %s\n", inst.Name(), inst.LogFile())
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write log report: %w", err)
	}
	return nil
}
