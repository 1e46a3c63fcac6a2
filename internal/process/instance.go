package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/fileutil"
	"github.com/giantswarm/procpool/internal/sentinel"
	"github.com/gofrs/flock"
)

// TypeName is the instance type name folded into fingerprints.
const TypeName = "process"

// ErrAlreadyStarted is returned when Start is called while another Start
// of the same instance is still spawning the process.
const ErrAlreadyStarted = sentinel.Error("process start already in progress")

// ErrJammed is returned by Stop when the process survived both SIGTERM and
// SIGKILL within their timeouts.
const ErrJammed = sentinel.Error("process did not exit after kill")

// readyPollInterval is the pause between readiness test runs.
const readyPollInterval = 50 * time.Millisecond

// waitDelay bounds how long cmd.Wait keeps copying output after the process
// exited, in case a grandchild still holds the pipe.
const waitDelay = time.Second

// Type builds exec-backed instances.
type Type struct {
	log *slog.Logger
}

// NewType creates a Type. If logger is nil, slog.Default() is used.
func NewType(logger *slog.Logger) *Type {
	if logger == nil {
		logger = slog.Default()
	}
	return &Type{log: logger}
}

// TypeName implements core.InstanceType.
func (t *Type) TypeName() string { return TypeName }

// New implements core.InstanceType.
//
//nolint:ireturn // core.InstanceType contract.
func (t *Type) New(params core.InstanceParams) (core.Instance, error) {
	return New(params, t.log), nil
}

// Instance runs one executable. It is safe for concurrent use; state change
// listeners are always invoked without the instance lock held.
type Instance struct {
	name    string
	path    string
	args    []string
	workDir string
	log     *slog.Logger

	mu        sync.Mutex
	opts      core.Options
	env       []string
	state     core.State
	stateLog  []core.StateRecord
	listeners []func(core.State)
	cmd       *exec.Cmd
	exited    chan struct{} // closed by waitExit once the exit state is published
	exitState core.State    // entered when the current process exits
	exitCode  int
	logs      *logFile
	lock      *flock.Flock
}

// New creates an instance that has not been started. If logger is nil,
// slog.Default() is used.
func New(params core.InstanceParams, logger *slog.Logger) *Instance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instance{
		name:     params.Name,
		path:     params.Path,
		args:     slices.Clone(params.Arguments),
		workDir:  params.WorkingDirectory,
		log:      logger.With("instance", params.Name),
		opts:     params.Options,
		exitCode: -1,
	}
}

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// State returns the current state.
func (i *Instance) State() core.State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// StateChangeTime returns when the current state was entered, or the zero
// time if the instance never changed state.
func (i *Instance) StateChangeTime() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.stateLog) == 0 {
		return time.Time{}
	}
	return i.stateLog[len(i.stateLog)-1].Time
}

// StateLog returns every transition so far, oldest first.
func (i *Instance) StateLog() []core.StateRecord {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.stateLog)
}

// Running reports whether the process is starting, running or ready.
func (i *Instance) Running() bool { return i.State().IsRunning() }

// Dead reports whether the process exited without being asked to.
func (i *Instance) Dead() bool { return i.State() == core.StateDead }

// Failed reports whether the process did not become ready.
func (i *Instance) Failed() bool { return i.State() == core.StateFailed }

// Jammed reports whether the process could not be stopped.
func (i *Instance) Jammed() bool { return i.State() == core.StateJammed }

// AfterStateChange registers fn to be called with every new state.
func (i *Instance) AfterStateChange(fn func(core.State)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// ResetOptions replaces the options used by later Start, Stop and Refresh
// calls.
func (i *Instance) ResetOptions(opts core.Options) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.opts = opts
}

// Setenv adds an environment variable for subsequent starts. Variables are
// appended to the test binary's environment.
func (i *Instance) Setenv(key, value string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.env = append(i.env, key+"="+value)
}

// LogFile returns the path of the combined output log.
func (i *Instance) LogFile() string {
	return logPath(i.workDir, filepath.Base(i.path))
}

// ExitCode returns the exit status of the last run, or -1 if the process
// never exited or was terminated by a signal.
func (i *Instance) ExitCode() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode
}

// Command returns the command line.
func (i *Instance) Command() string {
	return strings.Join(append([]string{i.path}, i.args...), " ")
}

// WorkingDirectory returns the directory the process runs in.
func (i *Instance) WorkingDirectory() string { return i.workDir }

func (i *Instance) String() string { return i.name }

// setStateLocked records s and returns a func that notifies the listeners.
// The returned func must be called after mu is released.
func (i *Instance) setStateLocked(s core.State) func() {
	i.state = s
	i.stateLog = append(i.stateLog, core.StateRecord{State: s, Time: time.Now()})
	listeners := slices.Clone(i.listeners)
	return func() {
		for _, fn := range listeners {
			fn(s)
		}
	}
}

func (i *Instance) setState(s core.State) {
	i.mu.Lock()
	notify := i.setStateLocked(s)
	i.mu.Unlock()
	notify()
}

// Start spawns the process and waits until the ready test passes. Starting
// a running instance is a no-op.
//
// If the process exits before it is ready the instance is dead and the
// error wraps ErrProcessExited. If the ready test fails or times out the
// process is killed and the instance is failed.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	switch {
	case i.state == core.StateStarting:
		i.mu.Unlock()
		return fmt.Errorf("start %s: %w", i.name, ErrAlreadyStarted)
	case i.cmd != nil:
		i.mu.Unlock()
		return nil
	}
	opts := i.opts
	env := slices.Clone(i.env)
	notify := i.setStateLocked(core.StateStarting)
	i.mu.Unlock()
	notify()

	i.log.Debug("starting process", "command", i.Command(), "dir", i.workDir)

	cmd, logs, lock, err := i.spawn(ctx, opts, env)
	if err != nil {
		i.setState(core.StateDead)
		return fmt.Errorf("start %s: %w", i.name, err)
	}

	exited := make(chan struct{})
	i.mu.Lock()
	i.cmd = cmd
	i.exited = exited
	i.exitState = core.StateDead
	i.logs = logs
	i.lock = lock
	notify = i.setStateLocked(core.StateRunning)
	i.mu.Unlock()
	notify()

	go i.waitExit(cmd, exited)

	return i.awaitReady(ctx, cmd, exited, opts)
}

// spawn prepares the working directory and starts the command.
func (i *Instance) spawn(ctx context.Context, opts core.Options, env []string) (*exec.Cmd, *logFile, *flock.Flock, error) {
	if err := fileutil.EnsureDir(i.workDir); err != nil {
		return nil, nil, nil, err
	}

	lockCtx := ctx
	if opts.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, opts.ReadyTimeout)
		defer cancel()
	}
	lock, err := acquireDirLock(lockCtx, i.workDir)
	if err != nil {
		return nil, nil, nil, err
	}

	logs, err := openLogFile(i.LogFile())
	if err != nil {
		releaseDirLock(i.log, lock)
		return nil, nil, nil, err
	}

	cmd := exec.Command(i.path, i.args...) //nolint:gosec // executing the configured binary is the point
	cmd.Dir = i.workDir
	cmd.Env = append(os.Environ(), env...)
	out := logs.writer(opts.Logging, i.log, i.name)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = waitDelay
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		_ = logs.Close()
		releaseDirLock(i.log, lock)
		return nil, nil, nil, fmt.Errorf("start command: %w", err)
	}
	return cmd, logs, lock, nil
}

func (i *Instance) awaitReady(ctx context.Context, cmd *exec.Cmd, exited chan struct{}, opts core.Options) error {
	err := WaitReady(ctx, i, opts.ReadyTest, ReadyWait{
		Interval: readyPollInterval,
		Timeout:  opts.ReadyTimeout,
		Exited:   exited,
		Logger:   i.log,
	})
	if err == nil {
		i.mu.Lock()
		var notify func()
		if i.cmd == cmd && i.state == core.StateRunning {
			notify = i.setStateLocked(core.StateReady)
		}
		i.mu.Unlock()
		if notify != nil {
			notify()
		}
		return nil
	}

	if errors.Is(err, ErrProcessExited) {
		return err
	}

	i.log.Warn("process did not become ready, killing it", "error", err)
	i.mu.Lock()
	if i.cmd == cmd {
		i.exitState = core.StateFailed
	}
	i.mu.Unlock()

	_ = cmd.Process.Kill()
	if ok, _ := waitExited(context.Background(), exited, opts.KillTimeout); !ok {
		i.jam(cmd)
	}
	return fmt.Errorf("start %s: %w", i.name, err)
}

// waitExit is the single cmd.Wait caller of a process. It publishes the
// exit state and releases the resources held while running.
func (i *Instance) waitExit(cmd *exec.Cmd, exited chan struct{}) {
	waitErr := cmd.Wait()

	i.mu.Lock()
	i.exitCode = -1
	if cmd.ProcessState != nil {
		i.exitCode = cmd.ProcessState.ExitCode()
	}
	state := i.exitState
	logs, lock := i.logs, i.lock
	i.cmd, i.exited, i.logs, i.lock = nil, nil, nil, nil
	notify := i.setStateLocked(state)
	i.mu.Unlock()

	if err := logs.Close(); err != nil {
		i.log.Debug("close log file", "error", err)
	}
	releaseDirLock(i.log, lock)

	i.log.Debug("process exited", "state", state, "wait_error", waitErr)
	notify()
	close(exited)
}

// Stop sends SIGTERM, then SIGKILL after the terminate timeout. If the
// process is still alive after the kill timeout, the instance is jammed and
// ErrJammed is returned. Stopping a failed instance, whose process was
// already killed, records not_running. Stopping any other instance that has
// no process is a no-op.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	cmd, exited, opts := i.cmd, i.exited, i.opts
	if cmd == nil {
		var notify func()
		if i.state == core.StateFailed {
			notify = i.setStateLocked(core.StateNotRunning)
		}
		i.mu.Unlock()
		if notify != nil {
			notify()
		}
		return nil
	}
	i.exitState = core.StateNotRunning
	i.mu.Unlock()

	i.log.Debug("stopping process", "pid", cmd.Process.Pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		i.log.Debug("send SIGTERM", "error", err)
	}
	ok, err := waitExited(ctx, exited, opts.TermTimeout)
	if err != nil {
		return fmt.Errorf("stop %s: %w", i.name, err)
	}
	if ok {
		return nil
	}

	i.log.Warn("process ignored SIGTERM, killing it", "timeout", opts.TermTimeout)
	if err := cmd.Process.Kill(); err != nil {
		i.log.Debug("send SIGKILL", "error", err)
	}
	ok, err = waitExited(ctx, exited, opts.KillTimeout)
	if err != nil {
		return fmt.Errorf("stop %s: %w", i.name, err)
	}
	if ok {
		return nil
	}

	i.jam(cmd)
	return fmt.Errorf("stop %s: %w", i.name, ErrJammed)
}

// jam marks the instance jammed if cmd is still its current process.
func (i *Instance) jam(cmd *exec.Cmd) {
	i.mu.Lock()
	var notify func()
	if i.cmd == cmd {
		notify = i.setStateLocked(core.StateJammed)
	}
	i.mu.Unlock()
	if notify != nil {
		i.log.Error("process could not be stopped", "pid", cmd.Process.Pid)
		notify()
	}
}

// Restart stops the instance and starts it again.
func (i *Instance) Restart(ctx context.Context) error {
	if err := i.Stop(ctx); err != nil {
		return err
	}
	return i.Start(ctx)
}

// Close stops the process if it is still running and releases the log file
// and the working directory lock.
func (i *Instance) Close() error {
	err := i.Stop(context.Background())

	i.mu.Lock()
	logs, lock := i.logs, i.lock
	i.logs, i.lock = nil, nil
	i.mu.Unlock()

	if closeErr := logs.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close log file: %w", closeErr))
	}
	releaseDirLock(i.log, lock)
	return err
}

// waitExited waits for exited to be closed. It reports false when timeout
// elapses first and returns ctx's error when ctx is done first.
func waitExited(ctx context.Context, exited <-chan struct{}, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-exited:
		return true, nil
	case <-t.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
