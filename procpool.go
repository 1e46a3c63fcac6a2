package procpool

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/process"
	"github.com/giantswarm/procpool/internal/server"
)

// Singleton state for SharedPool. The first call creates the pool;
// subsequent calls return it and log a warning if options were passed.
//
// singletonMu protects both singletonPool and singletonOnce so that
// resetForTesting is safe to call concurrently with SharedPool.
var (
	singletonMu   sync.Mutex
	singletonPool *Pool
	singletonOnce sync.Once
)

// defaultPoolConfig returns a poolConfig populated with all default values.
// The project directory is captured here, once; key derivation never looks
// at the process working directory again.
func defaultPoolConfig() poolConfig {
	projectDir, err := os.Getwd()
	if err != nil {
		core.Logger().Warn("cannot determine working directory; relative file arguments stay relative", "error", err)
		projectDir = ""
	}
	return poolConfig{core.PoolConfig{
		MaxRunning:  DefaultMaxRunning,
		BaseDataDir: filepath.Join(os.TempDir(), DefaultBaseDataDirName),
		ProjectDir:  projectDir,
	}}
}

// NewPool creates an independent pool. Most test suites want SharedPool so
// that every package-level helper reaches the same instances.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
func NewPool(opts ...PoolOption) *Pool {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return core.NewPool(cfg.toCoreConfig())
}

// SharedPool returns the process-level pool.
//
// The first call creates the pool with the given options. Subsequent calls
// return the same pool; their options are ignored and a warning is logged.
// SharedPool performs no I/O.
func SharedPool(opts ...PoolOption) *Pool {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	created := false
	singletonOnce.Do(func() {
		singletonPool = NewPool(opts...)
		created = true
	})
	if !created && len(opts) > 0 {
		core.Logger().Warn("SharedPool called with options after the pool was created; options ignored")
	}
	return singletonPool
}

// resetForTesting resets the singleton state so that the next SharedPool
// call creates a fresh pool. It must only be called from tests.
func resetForTesting() {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	singletonPool = nil
	singletonOnce = sync.Once{}
}

// ProcessType returns the exec-backed instance type. If logger is nil, the
// procpool logger is used.
//
//nolint:ireturn // InstanceType is the pool's constructor contract.
func ProcessType(logger *slog.Logger) InstanceType {
	if logger == nil {
		logger = core.Logger()
	}
	return process.NewType(logger)
}

// ServerExtension returns the extension that gives each instance a free TCP
// port from p's registry. The port is exported to the process as PORT and
// is available through Portable.
//
//nolint:ireturn // Extension is the decorator contract.
func ServerExtension(p *Pool) Extension {
	return server.New(p.Ports())
}

// PortOpen is a ready test that passes once a server instance accepts TCP
// connections on its port.
func PortOpen(ctx context.Context, inst Instance) (bool, error) {
	return server.PortOpen(ctx, inst)
}
