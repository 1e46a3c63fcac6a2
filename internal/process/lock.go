package process

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockFileName is created inside every instance working directory.
const lockFileName = ".procpool.lock"

// lockRetryInterval is the pause between lock attempts.
const lockRetryInterval = 50 * time.Millisecond

// acquireDirLock takes an exclusive lock on dir so that two test binaries
// never run an instance out of the same working directory.
func acquireDirLock(ctx context.Context, dir string) (*flock.Flock, error) {
	path := filepath.Join(dir, lockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock working directory %s: %w", dir, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("lock working directory %s: %w", dir, ctx.Err())
		}
		return nil, fmt.Errorf("lock working directory %s: lock not acquired", dir)
	}
	return fl, nil
}

// releaseDirLock unlocks and closes fl. The lock file stays on disk; removing
// it could invalidate a lock another process acquires concurrently.
func releaseDirLock(log *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		log.Debug("release working directory lock", "path", fl.Path(), "error", err)
	}
}
