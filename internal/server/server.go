package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/netutil"
)

// Name is the extension name folded into fingerprints.
const Name = "server"

// PortEnv is the environment variable that carries the allocated port.
const PortEnv = "PORT"

// dialTimeout bounds a single PortOpen probe.
const dialTimeout = 500 * time.Millisecond

// Extension allocates ports from a registry shared with its pool.
type Extension struct {
	ports *netutil.PortRegistry
}

// New creates the extension. Panics if ports is nil.
func New(ports *netutil.PortRegistry) *Extension {
	if ports == nil {
		panic("procpool: server extension port registry must not be nil")
	}
	return &Extension{ports: ports}
}

// Name implements core.Extension.
func (e *Extension) Name() string { return Name }

// Apply reserves a port and wraps inst. The port is exported as PORT when
// inst supports environment variables.
//
//nolint:ireturn // core.Extension contract.
func (e *Extension) Apply(inst core.Instance) (core.Instance, error) {
	port, err := e.ports.AllocatePort(inst.Name())
	if err != nil {
		return nil, fmt.Errorf("allocate port for %s: %w", inst.Name(), err)
	}
	if env, ok := inst.(interface{ Setenv(key, value string) }); ok {
		env.Setenv(PortEnv, strconv.Itoa(port))
	}
	core.Logger().Debug("allocated server port", "instance", inst.Name(), "port", port)
	return &Instance{Instance: inst, port: port, ports: e.ports}, nil
}

// Instance decorates a core.Instance with its allocated port.
type Instance struct {
	core.Instance

	port  int
	ports *netutil.PortRegistry
	once  sync.Once
}

// Port returns the allocated TCP port.
func (i *Instance) Port() int { return i.port }

// ResetOptions forwards opts to the wrapped instance. The ready test is
// bound to the decorated instance so it can reach Port.
func (i *Instance) ResetOptions(opts core.Options) {
	if test := opts.ReadyTest; test != nil {
		opts.ReadyTest = func(ctx context.Context, _ core.Instance) (bool, error) {
			return test(ctx, i)
		}
	}
	i.Instance.ResetOptions(opts)
}

// Close closes the wrapped instance if it holds resources and returns the
// port to the registry. The port is released only once.
func (i *Instance) Close() error {
	var err error
	if c, ok := i.Instance.(io.Closer); ok {
		err = c.Close()
	}
	i.once.Do(func() { i.ports.Release(i.port) })
	return err
}

// Portable is implemented by instances created with the server extension.
type Portable interface {
	Port() int
}

// PortOpen is a ready test that succeeds once the instance accepts TCP
// connections on its port. Instances without a port are never ready.
func PortOpen(ctx context.Context, inst core.Instance) (bool, error) {
	p, ok := inst.(Portable)
	if !ok {
		return false, fmt.Errorf("instance %s has no port", inst.Name())
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p.Port())))
	if err != nil {
		return false, nil //nolint:nilerr // not listening yet
	}
	_ = conn.Close()
	return true, nil
}
