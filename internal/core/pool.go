package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/giantswarm/procpool/internal/evict"
	"github.com/giantswarm/procpool/internal/fileutil"
	"github.com/giantswarm/procpool/internal/netutil"
	"golang.org/x/sync/errgroup"
)

// Pool memoizes instances by fingerprint and bounds how many of them stay
// running between test cycles.
//
// Every bookkeeping step runs under mu. Stop requests produced by a trim pass
// are queued while mu is held and issued after it is released, but before
// the pool method that triggered the trim returns. This lets a stopping
// instance report its own state change back into the pool without
// deadlocking.
type Pool struct {
	cfg PoolConfig

	// mu protects instances, stats and pending.
	mu        sync.Mutex
	instances *evict.Container[string, Instance]
	stats     map[string]*InstanceStats
	pending   []eviction

	ports   *netutil.PortRegistry
	metrics *poolMetrics
	runID   string
	log     *slog.Logger
}

type eviction struct {
	key  string
	inst Instance
}

// NewPool creates a Pool. Panics if cfg fails Validate; invalid pool
// configuration is a programmer error.
func NewPool(cfg PoolConfig) *Pool {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("procpool: invalid pool config: %v", err))
	}

	log := Logger()
	p := &Pool{
		cfg:     cfg,
		stats:   make(map[string]*InstanceStats),
		ports:   cfg.Ports,
		metrics: newPoolMetrics(cfg.MeterProvider, log),
		runID:   time.Now().UTC().Format("20060102T150405.000000000Z"),
		log:     log,
	}
	if p.ports == nil {
		p.ports = netutil.NewPortRegistry(log)
	}
	p.instances = evict.New[string, Instance](cfg.MaxRunning, p.evict, log)
	p.instances.AfterStore(p.track)
	return p
}

// MaxRunning returns the configured kept window size.
func (p *Pool) MaxRunning() int { return p.cfg.MaxRunning }

// Ports returns the port registry shared with server extensions.
func (p *Pool) Ports() *netutil.PortRegistry { return p.ports }

// Define creates a definition for the executable at path in the default
// group, using the pool's default instance type and logging setting.
func (p *Pool) Define(path string) *Definition {
	opts := DefaultOptions()
	opts.Logging = p.cfg.Logging
	return NewDefinition(p, DefaultGroup, path, p.cfg.DefaultType, opts)
}

// Resolve returns the instance for r. On a hit the cached instance gets r's
// options and is returned as is; it is not restarted. On a miss a new
// instance is built, decorated with r's extensions in name order, and
// stored.
//
//nolint:ireturn // Instance is the consumed process contract.
func (p *Pool) Resolve(r *Recipe) (Instance, error) {
	inst, err := p.resolveLocked(r)
	p.flushEvictions()
	return inst, err
}

//nolint:ireturn // Instance is the consumed process contract.
func (p *Pool) resolveLocked(r *Recipe) (Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := r.Key()
	if inst, ok := p.instances.Get(key); ok {
		inst.ResetOptions(r.Options())
		return inst, nil
	}

	inst, err := r.Type().New(InstanceParams{
		Name:             r.Name(),
		Path:             r.Path(),
		Arguments:        p.renderArguments(r.Arguments()),
		WorkingDirectory: p.workingDirectory(r),
		Options:          r.Options(),
	})
	if err != nil {
		return nil, fmt.Errorf("create instance %s: %w", r.Name(), err)
	}
	for _, ext := range r.Extensions() {
		decorated, err := ext.Apply(inst)
		if err != nil {
			return nil, fmt.Errorf("apply extension %s to %s: %w", ext.Name(), r.Name(), err)
		}
		inst = decorated
	}
	// Decorators see the options through the same path as later refreshes.
	inst.ResetOptions(r.Options())

	p.log.Debug("new instance", "name", inst.Name(), "key", key)
	p.instances.Put(key, inst)
	return inst, nil
}

func (p *Pool) renderArguments(args []Argument) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a.File {
			out = append(out, fileutil.Resolve(p.cfg.ProjectDir, a.Value))
			continue
		}
		out = append(out, a.Value)
	}
	return out
}

func (p *Pool) workingDirectory(r *Recipe) string {
	if dir := r.WorkingDirectory(); dir != "" {
		return dir
	}
	return filepath.Join(p.cfg.BaseDataDir, filepath.Base(r.Path()), r.Key())
}

// track is the container's after-store observer. It subscribes to the
// instance's state changes and covers instances stored while already
// running. Called with mu held.
func (p *Pool) track(key string, inst Instance) {
	inst.AfterStateChange(func(s State) {
		p.stateChanged(key, inst, s)
	})
	if inst.Running() {
		p.instances.MarkRunning(key)
	}
	p.stat(inst.Name())
}

func (p *Pool) stateChanged(key string, inst Instance, s State) {
	p.mu.Lock()
	switch s {
	case StateStarting:
		// Marked before the process is up so that an over-limit start
		// evicts a stale instance first.
		p.instances.MarkRunning(key)
		p.stat(inst.Name()).Started++
		p.metrics.recordStart(inst.Name())
	case StateNotRunning, StateDead, StateJammed:
		p.instances.MarkNotRunning(key)
	}
	p.mu.Unlock()

	p.flushEvictions()
}

// evict is the container's eviction callback. Called with mu held.
func (p *Pool) evict(key string, inst Instance) {
	p.stat(inst.Name()).LRUStopped++
	p.metrics.recordLRUStop(inst.Name())
	for _, ev := range p.pending {
		if ev.key == key {
			return
		}
	}
	p.log.Debug("too many instances running, stopping", "name", inst.Name(), "key", key)
	p.pending = append(p.pending, eviction{key: key, inst: inst})
}

// flushEvictions issues queued stop requests. Must be called without mu.
func (p *Pool) flushEvictions() {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, ev := range pending {
		if err := ev.inst.Stop(context.Background()); err != nil {
			p.log.Warn("stop evicted instance", "name", ev.inst.Name(), "key", ev.key, "error", err)
		}
	}
}

// Cleanup ends a test cycle: instances not used since the previous Cleanup
// lose their active protection and anything running outside the kept window
// is stopped.
func (p *Pool) Cleanup() {
	p.mu.Lock()
	p.instances.ResetActive()
	p.mu.Unlock()

	p.flushEvictions()
}

// Get returns the instance cached under key and marks it used.
//
//nolint:ireturn // Instance is the consumed process contract.
func (p *Pool) Get(key string) (Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances.Get(key)
}

// Delete forgets key entirely. The instance is not stopped.
func (p *Pool) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instances.Delete(key)
}

// Instances returns every cached instance ordered by key.
func (p *Pool) Instances() []Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances.Values()
}

// String summarizes the pool's bookkeeping.
func (p *Pool) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instances.String()
}

// Shutdown stops every running instance concurrently and then closes the
// instances that hold resources (ports, locks, log files). The first stop
// error is joined with every close error. The pool stays usable afterwards.
func (p *Pool) Shutdown(ctx context.Context) error {
	instances := p.Instances()

	var g errgroup.Group
	for _, inst := range instances {
		if !inst.Running() {
			continue
		}
		g.Go(func() error {
			if err := inst.Stop(ctx); err != nil {
				return fmt.Errorf("stop %s: %w", inst.Name(), err)
			}
			return nil
		})
	}
	errs := []error{g.Wait()}

	for _, inst := range instances {
		if c, ok := inst.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", inst.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
