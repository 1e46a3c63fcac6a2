package procpool

import (
	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/process"
)

// poolConfig wraps core.PoolConfig so that options can be applied without
// exposing internal/core in the option signature.
type poolConfig struct {
	core.PoolConfig
}

// toCoreConfig returns the embedded core.PoolConfig, filling in the default
// instance type when none was configured.
func (c poolConfig) toCoreConfig() core.PoolConfig {
	cfg := c.PoolConfig
	if cfg.DefaultType == nil {
		cfg.DefaultType = process.NewType(core.Logger())
	}
	return cfg
}
