// Package process provides the exec-backed instance type used by default by
// the pool.
//
// An Instance runs one executable in its own working directory. The
// directory is guarded by a file lock while the process runs, output goes to
// a log file inside it, and readiness is polled with the definition's ready
// test. Stopping escalates from SIGTERM to SIGKILL; an instance that survives
// both is reported as jammed.
package process
