package slthread

import "sync"

// fastPathLimit bounds the direct-indexed array; OS thread ids above this
// spill into the mutex-guarded map. 65536 comfortably covers every thread id
// a Windows or Linux process will hand out for the lifetime of a game process.
const fastPathLimit = 65536

// Context stores one value of T per OS thread id. Below fastPathLimit, reads
// and writes hit a plain array with no locking; above it, a mutex-guarded
// map is used. This mirrors the two-tier index/overflow-map shape the CHI
// uses elsewhere for generation-checked handles, applied here to thread ids
// instead of resource ids -- and deliberately avoids Go's goroutine-scoped
// thread-local idioms, since startup/shutdown order for this state must
// track OS threads, not goroutines.
type Context[T any] struct {
	fast    []entry[T]
	fastSet []bool

	mu   sync.Mutex
	over map[uint64]T
}

type entry[T any] struct {
	value T
}

// NewContext creates an empty per-thread context store.
func NewContext[T any]() *Context[T] {
	return &Context[T]{
		fast:    make([]entry[T], fastPathLimit),
		fastSet: make([]bool, fastPathLimit),
		over:    make(map[uint64]T),
	}
}

// Get returns the value for threadID and whether one was set.
func (c *Context[T]) Get(threadID uint64) (T, bool) {
	if threadID < fastPathLimit {
		if c.fastSet[threadID] {
			return c.fast[threadID].value, true
		}
		var zero T
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.over[threadID]
	return v, ok
}

// Set stores value for threadID.
func (c *Context[T]) Set(threadID uint64, value T) {
	if threadID < fastPathLimit {
		c.fast[threadID] = entry[T]{value: value}
		c.fastSet[threadID] = true
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.over[threadID] = value
}

// GetOrCreate returns the existing value for threadID, or creates one with
// make, stores it, and returns it.
func (c *Context[T]) GetOrCreate(threadID uint64, make func() T) T {
	if v, ok := c.Get(threadID); ok {
		return v
	}
	v := make()
	c.Set(threadID, v)
	return v
}

// Delete removes the value for threadID, if any.
func (c *Context[T]) Delete(threadID uint64) {
	if threadID < fastPathLimit {
		c.fastSet[threadID] = false
		var zero T
		c.fast[threadID].value = zero
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.over, threadID)
}
