package procpool

import "go.opentelemetry.io/otel/metric"

// ResetForTesting resets the singleton pool state so that the next call to
// SharedPool creates a fresh pool. Exported only for package procpool_test.
func ResetForTesting() { resetForTesting() }

// ConfigSnapshot holds a copy of poolConfig fields for test assertions.
type ConfigSnapshot struct {
	MaxRunning    int
	BaseDataDir   string
	ProjectDir    string
	Logging       bool
	StatsDB       string
	DefaultType   InstanceType
	MeterProvider metric.MeterProvider
}

// ApplyOptionsForTesting creates a default poolConfig, applies opts, and
// returns a snapshot of the result without touching the singleton.
func ApplyOptionsForTesting(opts ...PoolOption) ConfigSnapshot {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		MaxRunning:    cfg.MaxRunning,
		BaseDataDir:   cfg.BaseDataDir,
		ProjectDir:    cfg.ProjectDir,
		Logging:       cfg.Logging,
		StatsDB:       cfg.StatsDB,
		DefaultType:   cfg.DefaultType,
		MeterProvider: cfg.MeterProvider,
	}
}
