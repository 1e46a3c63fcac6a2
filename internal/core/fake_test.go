package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// requirePanicContains calls fn and verifies it panics with a message
// containing wantSubstr.
func requirePanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()

	var recovered string
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = fmt.Sprint(r)
			}
		}()
		fn()
	}()

	if recovered == "" {
		t.Fatal("expected panic, got none")
	}

	if !strings.Contains(recovered, wantSubstr) {
		t.Errorf("panic message %q does not contain %q", recovered, wantSubstr)
	}
}

// fakeType builds fakeInstances without spawning anything.
type fakeType struct {
	name string

	mu      sync.Mutex
	created []*fakeInstance
}

func (f *fakeType) TypeName() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

//nolint:ireturn // InstanceType contract.
func (f *fakeType) New(params InstanceParams) (Instance, error) {
	inst := &fakeInstance{params: params, opts: params.Options, exitCode: -1}
	f.mu.Lock()
	f.created = append(f.created, inst)
	f.mu.Unlock()
	return inst, nil
}

func (f *fakeType) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// fakeInstance is an in-memory Instance. Start walks starting, running and
// ready; Stop moves a running or failed instance to not_running. Listeners are notified synchronously
// without the lock held, as the real instance does.
type fakeInstance struct {
	params InstanceParams

	mu        sync.Mutex
	opts      Options
	state     State
	stateLog  []StateRecord
	listeners []func(State)
	exitCode  int
	starts    int
	stops     int
	resets    int
	closed    int
}

func (f *fakeInstance) Name() string { return f.params.Name }

func (f *fakeInstance) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeInstance) StateChangeTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stateLog) == 0 {
		return time.Time{}
	}
	return f.stateLog[len(f.stateLog)-1].Time
}

func (f *fakeInstance) StateLog() []StateRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.stateLog)
}

func (f *fakeInstance) Running() bool { return f.State().IsRunning() }
func (f *fakeInstance) Dead() bool    { return f.State() == StateDead }
func (f *fakeInstance) Failed() bool  { return f.State() == StateFailed }
func (f *fakeInstance) Jammed() bool  { return f.State() == StateJammed }

// setStateAt transitions to s, stamping at, or the current time when at is
// zero.
func (f *fakeInstance) setStateAt(s State, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	f.mu.Lock()
	f.state = s
	f.stateLog = append(f.stateLog, StateRecord{State: s, Time: at})
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (f *fakeInstance) setState(s State) { f.setStateAt(s, time.Time{}) }

func (f *fakeInstance) Start(context.Context) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()

	f.setState(StateStarting)
	f.setState(StateRunning)
	f.setState(StateReady)
	return nil
}

func (f *fakeInstance) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	running := f.state.IsRunning() || f.state == StateFailed
	f.mu.Unlock()

	if running {
		f.setState(StateNotRunning)
	}
	return nil
}

func (f *fakeInstance) Restart(ctx context.Context) error {
	if err := f.Stop(ctx); err != nil {
		return err
	}
	return f.Start(ctx)
}

func (f *fakeInstance) AfterStateChange(fn func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeInstance) ResetOptions(opts Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = opts
	f.resets++
}

func (f *fakeInstance) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeInstance) LogFile() string          { return f.params.WorkingDirectory + "/fake.log" }
func (f *fakeInstance) Command() string          { return f.params.Path }
func (f *fakeInstance) WorkingDirectory() string { return f.params.WorkingDirectory }

func (f *fakeInstance) ExitCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exitCode
}

func (f *fakeInstance) counts() (starts, stops, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.resets
}

func (f *fakeInstance) options() Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts
}

// fakeExtension wraps instances and records the order it was applied in.
type fakeExtension struct {
	name    string
	applied *[]string
}

func (e fakeExtension) Name() string { return e.name }

//nolint:ireturn // Extension contract.
func (e fakeExtension) Apply(inst Instance) (Instance, error) {
	if e.applied != nil {
		*e.applied = append(*e.applied, e.name)
	}
	return &wrappedInstance{Instance: inst, ext: e.name}, nil
}

type wrappedInstance struct {
	Instance
	ext string
}

// newTestPool creates a pool backed by fakeType.
func newTestPool(t *testing.T, maxRunning int) (*Pool, *fakeType) {
	t.Helper()
	typ := &fakeType{}
	p := NewPool(PoolConfig{
		MaxRunning:  maxRunning,
		BaseDataDir: t.TempDir(),
		ProjectDir:  t.TempDir(),
		DefaultType: typ,
	})
	return p, typ
}

// fakeOf unwraps decorators down to the fakeInstance.
func fakeOf(t *testing.T, inst Instance) *fakeInstance {
	t.Helper()
	for {
		switch v := inst.(type) {
		case *fakeInstance:
			return v
		case *wrappedInstance:
			inst = v.Instance
		default:
			t.Fatalf("unexpected instance type %T", inst)
			return nil
		}
	}
}
