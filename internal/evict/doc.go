// Package evict provides Container, a keyed store that decides which running
// values must be stopped.
//
// Each key may be a member of three overlapping sets:
//
//   - active: touched by Put or Get since the last ResetActive.
//   - running: reported alive through MarkRunning and not yet MarkNotRunning.
//   - kept: the most recently used running keys, bounded by maxRunning.
//
// Whenever membership changes in a way that can leave a key unprotected, a
// trim pass calls the eviction function for every key that is running but
// neither active nor kept. Eviction does not remove the key from running; the
// owner is expected to report MarkNotRunning once the value actually stops.
package evict
