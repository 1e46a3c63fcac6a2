package procpool

import "github.com/giantswarm/procpool/internal/core"

// Default configuration values for NewPool and SharedPool.
const (
	// DefaultMaxRunning is the size of the kept window: how many running
	// instances survive the end of a test cycle. 0 stops every instance the
	// finished cycle did not use.
	DefaultMaxRunning = 4

	// DefaultBaseDataDirName is the directory name under the system temp
	// directory where instance working directories are created. The full
	// path is filepath.Join(os.TempDir(), DefaultBaseDataDirName).
	DefaultBaseDataDirName = "procpool"

	// DefaultGroup is the group of definitions created by Pool.Define.
	DefaultGroup = core.DefaultGroup
)

// Default per-definition timeouts.
const (
	DefaultReadyTimeout = core.DefaultReadyTimeout
	DefaultTermTimeout  = core.DefaultTermTimeout
	DefaultKillTimeout  = core.DefaultKillTimeout
)

// KeyLength is the number of hex characters in a definition fingerprint.
// Distinct definitions could collide; nothing detects it.
const KeyLength = core.KeyLength
