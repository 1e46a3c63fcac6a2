package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/giantswarm/procpool/internal/sentinel"
)

// ErrDefinitionFrozen is the panic value, wrapped with the definition path,
// raised when a builder method is called on a Definition that has already
// produced an instance. Use With to derive a mutable copy.
const ErrDefinitionFrozen = sentinel.Error("definition is frozen")

// DefaultGroup is the group of definitions created with Pool.Define.
const DefaultGroup = "default"

// Argument is one command line argument. File arguments name a file whose
// content, rather than its path, identifies the instance.
type Argument struct {
	Value string
	File  bool
}

func (a Argument) String() string { return a.Value }

// Definition is the mutable recipe for an instance. Builder methods return
// the receiver for chaining and panic with ErrDefinitionFrozen once Recipe,
// Instance, Start or Refresh has been called.
//
// A Definition is not safe for concurrent use.
type Definition struct {
	pool *Pool

	group            string
	path             string
	typ              InstanceType
	extensions       map[string]Extension
	options          Options
	workingDirectory string
	arguments        []Argument

	frozen bool
}

// NewDefinition creates a definition bound to pool. Panics if path is empty
// or typ is nil.
func NewDefinition(pool *Pool, group, path string, typ InstanceType, opts Options) *Definition {
	if path == "" {
		panic("procpool: definition path must not be empty")
	}
	if typ == nil {
		panic("procpool: definition instance type must not be nil")
	}
	return &Definition{
		pool:       pool,
		group:      group,
		path:       path,
		typ:        typ,
		extensions: make(map[string]Extension),
		options:    opts,
	}
}

func (d *Definition) mutable() {
	if d.frozen {
		panic(fmt.Errorf("%w: %s", ErrDefinitionFrozen, d.path))
	}
}

// Path returns the executable path.
func (d *Definition) Path() string { return d.path }

// Group returns the definition group.
func (d *Definition) Group() string { return d.group }

// Frozen reports whether the definition can no longer be modified.
func (d *Definition) Frozen() bool { return d.frozen }

// Arguments returns a copy of the arguments appended so far.
func (d *Definition) Arguments() []Argument { return slices.Clone(d.arguments) }

// Options returns the current options.
func (d *Definition) Options() Options { return d.options }

// SetGroup changes the group the instance is named and keyed under.
func (d *Definition) SetGroup(group string) *Definition {
	d.mutable()
	d.group = group
	return d
}

// SetType changes the instance type. Panics if typ is nil.
func (d *Definition) SetType(typ InstanceType) *Definition {
	d.mutable()
	if typ == nil {
		panic("procpool: definition instance type must not be nil")
	}
	d.typ = typ
	return d
}

// Extend adds ext to the extension set and applies opts to the options.
// Adding an extension whose name is already present replaces it.
func (d *Definition) Extend(ext Extension, opts ...OptionFunc) *Definition {
	d.mutable()
	d.extensions[ext.Name()] = ext
	for _, opt := range opts {
		opt(&d.options)
	}
	return d
}

// LoggingEnabled turns on output logging for the instance.
func (d *Definition) LoggingEnabled() *Definition {
	d.mutable()
	d.options.Logging = true
	return d
}

// ReadyTest sets the readiness predicate.
func (d *Definition) ReadyTest(fn ReadyTest) *Definition {
	d.mutable()
	d.options.ReadyTest = fn
	return d
}

// RefreshAction sets what Refresh does to an already running instance.
func (d *Definition) RefreshAction(fn RefreshAction) *Definition {
	d.mutable()
	d.options.RefreshAction = fn
	return d
}

// ReadyTimeout bounds the readiness wait.
func (d *Definition) ReadyTimeout(timeout time.Duration) *Definition {
	d.mutable()
	d.options.ReadyTimeout = timeout
	return d
}

// TermTimeout bounds the wait after a graceful terminate request.
func (d *Definition) TermTimeout(timeout time.Duration) *Definition {
	d.mutable()
	d.options.TermTimeout = timeout
	return d
}

// KillTimeout bounds the wait after a kill before the instance is jammed.
func (d *Definition) KillTimeout(timeout time.Duration) *Definition {
	d.mutable()
	d.options.KillTimeout = timeout
	return d
}

// WorkingDirectory sets an explicit working directory. Without one the pool
// derives a directory from the executable name and the fingerprint.
func (d *Definition) WorkingDirectory(dir string) *Definition {
	d.mutable()
	d.workingDirectory = dir
	return d
}

// Argument appends plain string arguments.
func (d *Definition) Argument(values ...string) *Definition {
	d.mutable()
	for _, v := range values {
		d.arguments = append(d.arguments, Argument{Value: v})
	}
	return d
}

// FileArgument appends file arguments. Relative paths are resolved against
// the pool's project directory.
func (d *Definition) FileArgument(paths ...string) *Definition {
	d.mutable()
	for _, p := range paths {
		d.arguments = append(d.arguments, Argument{Value: p, File: true})
	}
	return d
}

// With returns an independent, unfrozen copy of d after applying fn to it.
// d itself is left untouched, frozen or not.
func (d *Definition) With(fn func(*Definition)) *Definition {
	cp := *d
	cp.extensions = maps.Clone(d.extensions)
	cp.arguments = slices.Clone(d.arguments)
	cp.frozen = false
	if fn != nil {
		fn(&cp)
	}
	return &cp
}

// Key returns the fingerprint of the definition's current content. It does
// not freeze the definition, so the result goes stale if the definition is
// modified afterwards.
func (d *Definition) Key() string {
	return d.snapshot().key
}

// Recipe freezes the definition and returns an immutable snapshot of it.
func (d *Definition) Recipe() *Recipe {
	d.frozen = true
	return d.snapshot()
}

// Instance freezes the definition and resolves it against the pool: a
// cached instance with the same fingerprint is refreshed with the current
// options and returned, otherwise a new instance is created.
//
//nolint:ireturn // Instance is the consumed process contract.
func (d *Definition) Instance() (Instance, error) {
	if d.pool == nil {
		panic("procpool: definition is not bound to a pool")
	}
	return d.pool.Resolve(d.Recipe())
}

// Start resolves the instance and starts it.
//
//nolint:ireturn // Instance is the consumed process contract.
func (d *Definition) Start(ctx context.Context) (Instance, error) {
	inst, err := d.Instance()
	if err != nil {
		return nil, err
	}
	if err := inst.Start(ctx); err != nil {
		return inst, fmt.Errorf("start %s: %w", inst.Name(), err)
	}
	return inst, nil
}

// Refresh resolves the instance, starts it if it is not running, and
// otherwise runs the refresh action (restart by default).
//
//nolint:ireturn // Instance is the consumed process contract.
func (d *Definition) Refresh(ctx context.Context) (Instance, error) {
	inst, err := d.Instance()
	if err != nil {
		return nil, err
	}
	if !inst.Running() {
		if err := inst.Start(ctx); err != nil {
			return inst, fmt.Errorf("start %s: %w", inst.Name(), err)
		}
		return inst, nil
	}
	action := d.options.RefreshAction
	if action == nil {
		action = func(ctx context.Context, inst Instance) error { return inst.Restart(ctx) }
	}
	if err := action(ctx, inst); err != nil {
		return inst, fmt.Errorf("refresh %s: %w", inst.Name(), err)
	}
	return inst, nil
}

func (d *Definition) snapshot() *Recipe {
	exts := make([]Extension, 0, len(d.extensions))
	for _, name := range slices.Sorted(maps.Keys(d.extensions)) {
		exts = append(exts, d.extensions[name])
	}
	r := &Recipe{
		group:            d.group,
		path:             d.path,
		typ:              d.typ,
		extensions:       exts,
		options:          d.options,
		workingDirectory: d.workingDirectory,
		arguments:        slices.Clone(d.arguments),
	}
	var projectDir string
	if d.pool != nil {
		projectDir = d.pool.cfg.ProjectDir
	}
	r.key = fingerprint(projectDir, r)
	return r
}
