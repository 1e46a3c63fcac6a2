package procpool

import (
	"log/slog"

	"github.com/giantswarm/procpool/internal/core"
)

// SetLogger replaces the package-level logger used by procpool. The
// provided logger should already carry any desired attributes.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute. Call SetLogger(nil) after slog.SetDefault() to pick up
// changes.
//
// SetLogger is safe to call concurrently with other procpool operations,
// but pools keep the logger they were created with.
//
// Example:
//
//	procpool.SetLogger(myLogger.With("component", "procpool"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
