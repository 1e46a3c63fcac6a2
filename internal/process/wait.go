package process

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/procpool/internal/core"
	"github.com/giantswarm/procpool/internal/sentinel"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Configuration errors of WaitReady.
const (
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")
	ErrTimeoutNotPositive  = sentinel.Error("timeout must be positive")
)

const (
	// ErrProcessExited is returned when the process exits before its ready
	// test passes.
	ErrProcessExited = sentinel.Error("process exited before becoming ready")
)

// ReadyWait configures WaitReady.
type ReadyWait struct {
	Interval time.Duration
	Timeout  time.Duration

	// Exited is closed by the process waiter once the exit state of inst
	// has been published. Nil means the process is not watched.
	Exited <-chan struct{}

	// Logger is expected to carry the instance name already.
	Logger *slog.Logger // defaults to slog.Default()
}

// WaitReady runs test against inst every Interval until it passes, fails,
// the process exits or Timeout elapses. A nil test fails with
// core.ErrNoReadyTest, the same as the default ready test.
func WaitReady(ctx context.Context, inst core.Instance, test core.ReadyTest, cfg ReadyWait) error {
	name := inst.Name()
	if cfg.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("wait for %s: %w", name, ErrTimeoutNotPositive)
	}
	if test == nil {
		return fmt.Errorf("wait for %s: %w", name, core.ErrNoReadyTest)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default().With("instance", name)
	}

	begin := time.Now()
	attempts := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, cfg.Timeout, true,
		func(pollCtx context.Context) (bool, error) {
			if exitedNow(cfg.Exited) {
				log.Debug("process exited while waiting for readiness",
					"state", inst.State(), "exit_code", inst.ExitCode(), "attempts", attempts)
				return false, ErrProcessExited
			}
			attempts++
			return test(pollCtx, inst)
		})
	if err != nil {
		return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
	}

	log.Debug("instance ready", "state", inst.State(), "attempts", attempts,
		"elapsed", time.Since(begin).Round(time.Millisecond))
	return nil
}

func exitedNow(exited <-chan struct{}) bool {
	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return true
	default:
		return false
	}
}
