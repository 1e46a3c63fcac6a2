package procpool_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/giantswarm/procpool"
)

// TestPublicErrorConstants verifies that every exported error constant
// has a message, matches itself directly and through %w wrapping, and does
// not match an unrelated error.
func TestPublicErrorConstants(t *testing.T) {
	t.Parallel()

	allErrors := map[string]error{
		"ErrAlreadyStarted":   procpool.ErrAlreadyStarted,
		"ErrDefinitionFrozen": procpool.ErrDefinitionFrozen,
		"ErrJammed":           procpool.ErrJammed,
		"ErrNoReadyTest":      procpool.ErrNoReadyTest,
		"ErrPortExhausted":    procpool.ErrPortExhausted,
		"ErrProcessExited":    procpool.ErrProcessExited,
	}

	for name, sentinel := range allErrors {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if sentinel == nil {
				t.Fatalf("%s is nil", name)
			}
			if msg := sentinel.Error(); msg == "" {
				t.Errorf("%s.Error() returned empty string", name)
			}
			if !errors.Is(sentinel, sentinel) {
				t.Errorf("errors.Is(%s, %s) = false, want true (self-match)", name, name)
			}
			wrapped := fmt.Errorf("wrapping: %w", sentinel)
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is(wrapped %s) = false, want true", name)
			}
			if errors.Is(sentinel, errors.New("some other error")) {
				t.Errorf("errors.Is(%s, errors.New(...)) = true, want false", name)
			}
		})
	}
}

// TestPublicErrorConstantsDistinct verifies no two sentinels match each other.
func TestPublicErrorConstantsDistinct(t *testing.T) {
	t.Parallel()

	all := []error{
		procpool.ErrAlreadyStarted,
		procpool.ErrDefinitionFrozen,
		procpool.ErrJammed,
		procpool.ErrNoReadyTest,
		procpool.ErrPortExhausted,
		procpool.ErrProcessExited,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = true, want false", a, b)
			}
		}
	}
}
