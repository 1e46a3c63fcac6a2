package evict

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/lru"
)

// EvictFunc is called by the trim pass for a running key that is no longer
// protected by the active set or the kept window.
type EvictFunc[K cmp.Ordered, V any] func(key K, value V)

// StoreFunc observes every Put.
type StoreFunc[K cmp.Ordered, V any] func(key K, value V)

// Container is a keyed store with lifecycle-driven eviction.
//
// Container is not safe for concurrent use. Callers must serialize all
// methods; the pool does so with its own mutex. The eviction and store
// callbacks run synchronously on the calling goroutine and must not call
// back into the Container.
type Container[K cmp.Ordered, V any] struct {
	all        map[K]V
	maxRunning int

	// kept is the bounded recency window. Its eviction hook keeps keptKeys
	// in sync, including on explicit Remove.
	kept     *lru.Cache
	keptKeys sets.Set[K]

	running sets.Set[K]
	active  sets.Set[K]

	afterStore []StoreFunc[K, V]
	evict      EvictFunc[K, V]
	log        *slog.Logger
}

// New creates a Container whose kept window holds at most maxRunning keys.
// A maxRunning of zero keeps nothing: every running key that is not active
// is evicted by the next trim pass. If logger is nil,
// slog.Default() is used. Panics if evict is nil or maxRunning is negative.
func New[K cmp.Ordered, V any](maxRunning int, evict EvictFunc[K, V], logger *slog.Logger) *Container[K, V] {
	if evict == nil {
		panic("procpool: evict.New eviction func must not be nil")
	}
	if maxRunning < 0 {
		panic(fmt.Sprintf("procpool: evict.New maxRunning must not be negative, got %d", maxRunning))
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container[K, V]{
		all:        make(map[K]V),
		maxRunning: maxRunning,
		keptKeys:   sets.New[K](),
		running:    sets.New[K](),
		active:     sets.New[K](),
		evict:      evict,
		log:        logger,
	}
	// lru treats a size of 0 as "no limit"; MarkRunning never adds to the
	// window in that case, so it stays empty.
	c.kept = lru.NewWithEvictionFunc(maxRunning, func(key lru.Key, _ any) {
		c.keptKeys.Delete(key.(K))
	})
	return c
}

// AfterStore registers fn to be called after every Put, in registration order.
func (c *Container[K, V]) AfterStore(fn StoreFunc[K, V]) {
	c.afterStore = append(c.afterStore, fn)
}

// Put stores value under key, overwriting any previous value, and marks the
// key active.
func (c *Container[K, V]) Put(key K, value V) {
	c.active.Insert(key)
	c.all[key] = value
	for _, fn := range c.afterStore {
		fn(key, value)
	}
}

// Get returns the value stored under key. A hit marks the key active and
// bumps its recency if it is inside the kept window.
func (c *Container[K, V]) Get(key K) (V, bool) {
	v, ok := c.all[key]
	if !ok {
		return v, false
	}
	c.active.Insert(key)
	c.kept.Get(key)
	return v, true
}

// Delete removes key from every set and from storage. Deleting an absent key
// is a no-op.
func (c *Container[K, V]) Delete(key K) {
	c.kept.Remove(key)
	c.running.Delete(key)
	c.active.Delete(key)
	delete(c.all, key)
}

// Values returns every stored value ordered by key.
func (c *Container[K, V]) Values() []V {
	keys := make([]K, 0, len(c.all))
	for k := range c.all {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.all[k])
	}
	return out
}

// MarkRunning records that key is alive, puts it at the front of the kept
// window and runs the trim pass. Falling out of the kept window only removes
// protection; it is the trim pass that decides what gets evicted. Unknown
// keys are ignored.
func (c *Container[K, V]) MarkRunning(key K) {
	if _, ok := c.all[key]; !ok {
		return
	}
	if c.maxRunning > 0 {
		c.kept.Add(key, struct{}{})
		c.keptKeys.Insert(key)
	}
	c.running.Insert(key)
	c.trim()
}

// MarkNotRunning removes key from the kept window and the running set.
// Calling it for a key that is not running is a no-op.
func (c *Container[K, V]) MarkNotRunning(key K) {
	c.kept.Remove(key)
	c.running.Delete(key)
}

// ResetActive closes a usage cycle: it clears the active set and runs the
// trim pass. When more keys were active than the kept window can hold, a
// warning is logged because maxRunning is below the observed concurrency.
func (c *Container[K, V]) ResetActive() {
	if c.active.Len() > c.maxRunning {
		c.log.Warn("more active instances than max running allowed; consider increasing max running",
			"max_running", c.maxRunning, "active", c.active.Len())
	}
	c.active = sets.New[K]()
	c.trim()
}

// trim evicts every running key that is neither active nor kept. Victims are
// visited in key order so that eviction is deterministic.
func (c *Container[K, V]) trim() {
	victims := c.running.Difference(c.active).Difference(c.keptKeys)
	for _, key := range sets.List(victims) {
		c.evict(key, c.all[key])
	}
}

// Counts is a point-in-time view of the set sizes.
type Counts struct {
	All     int
	Running int
	Active  int
	Kept    int
}

// Counts returns the current set sizes.
func (c *Container[K, V]) Counts() Counts {
	return Counts{
		All:     len(c.all),
		Running: c.running.Len(),
		Active:  c.active.Len(),
		Kept:    c.keptKeys.Len(),
	}
}

// IsActive reports whether key was touched in the current cycle.
func (c *Container[K, V]) IsActive(key K) bool { return c.active.Has(key) }

// IsRunning reports whether key is currently marked running.
func (c *Container[K, V]) IsRunning(key K) bool { return c.running.Has(key) }

// IsKept reports whether key is inside the kept window.
func (c *Container[K, V]) IsKept(key K) bool { return c.keptKeys.Has(key) }

// String summarizes the container for diagnostics.
func (c *Container[K, V]) String() string {
	return fmt.Sprintf("LRUPool[all: %d, running: %d, active: %v, keep: %d]",
		len(c.all), c.running.Len(), sets.List(c.active), c.keptKeys.Len())
}
