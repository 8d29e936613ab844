package chi

import (
	"sync"
	"time"
)

// poolKey is the hash key resource pool allocations are grouped under:
// (w, h, format, mips, depth, flags, state).
type poolKey struct {
	width, height, depth uint32
	format               Format
	mips                 uint32
	flags                Flags
	state                State
}

// pooledEntry is one free-list entry: the native resource plus the instant
// it was returned to the pool, consulted by collectGarbage's age threshold.
type pooledEntry struct {
	resource  *Native
	returnsAt time.Time
}

// Pool is the resource pool: allocations are hashed by descriptor content,
// free-list pops return a matching resource whose state is read back and
// stored on the descriptor, and a soft wait lets slots be returned before
// allocating anew. waitHint recomputes the wait budget from live VRAM
// headroom on every call rather than using a fixed constant.
type Pool struct {
	mu       sync.Mutex
	free     map[poolKey][]pooledEntry
	inflight int

	vramBudgetCurrent uint64
	vramBudgetTotal   uint64
	maxQueueSize      int

	create func(desc Descriptor) (*Native, error)
	now    func() time.Time
}

// NewPool constructs a Pool whose allocator falls back to create when the
// free list has no matching entry. now is injectable for tests; production
// callers pass time.Now.
func NewPool(create func(desc Descriptor) (*Native, error), now func() time.Time) *Pool {
	return &Pool{
		free:         make(map[poolKey][]pooledEntry),
		maxQueueSize: 64,
		create:       create,
		now:          now,
	}
}

// SetVRAMBudget records the current and total VRAM budget, consulted by
// waitHint on the next Allocate.
func (p *Pool) SetVRAMBudget(current, total uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vramBudgetCurrent = current
	p.vramBudgetTotal = total
}

// SetMaxQueueSize sets the in-flight allocation count above which waitHint
// switches to the long (under-pressure) wait.
func (p *Pool) SetMaxQueueSize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxQueueSize = n
}

const (
	waitHintShort = 500 * time.Microsecond
	waitHintLong  = 100 * time.Millisecond
)

// waitHint recomputes the soft wait budget for desc from the live VRAM
// headroom and current queue depth: ample budget and a shallow queue get
// the short wait; either constraint being violated gets the long one.
func (p *Pool) waitHint(desc Descriptor) time.Duration {
	footprint := uint64(desc.Width) * uint64(desc.Height) * uint64(desc.Depth+1) * 4
	bytesAvailable := p.vramBudgetTotal - p.vramBudgetCurrent
	if p.vramBudgetTotal > 0 && bytesAvailable > footprint && p.inflight < p.maxQueueSize {
		return waitHintShort
	}
	return waitHintLong
}

// Allocate returns a pooled resource matching desc if one is free, waiting
// up to waitHint(desc) for one to be returned before falling back to
// create. The returned resource's Descriptor.State reflects the state it
// was last released in.
func (p *Pool) Allocate(desc Descriptor) (*Native, error) {
	key := desc.hashKey()
	wait := p.lockedTryPop(key)
	if wait.ok {
		return wait.res, nil
	}

	hint := p.waitHint(desc)
	deadline := time.Now().Add(hint)
	for time.Now().Before(deadline) {
		time.Sleep(time.Microsecond * 50)
		if r := p.lockedTryPop(key); r.ok {
			return r.res, nil
		}
	}

	p.mu.Lock()
	p.inflight++
	p.mu.Unlock()

	return p.create(desc)
}

type popResult struct {
	res *Native
	ok  bool
}

func (p *Pool) lockedTryPop(key poolKey) popResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.free[key]
	if len(entries) == 0 {
		return popResult{}
	}
	last := len(entries) - 1
	entry := entries[last]
	p.free[key] = entries[:last]
	return popResult{res: entry.resource, ok: true}
}

// Release returns resource to the free list for later reuse.
func (p *Pool) Release(resource *Native) {
	key := resource.Descriptor.hashKey()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight > 0 {
		p.inflight--
	}
	p.free[key] = append(p.free[key], pooledEntry{resource: resource, returnsAt: p.now()})
}

// CollectGarbage destroys every pooled resource that has been idle for
// longer than age, via destroy.
func (p *Pool) CollectGarbage(age time.Duration, destroy func(*Native) error) error {
	p.mu.Lock()
	cutoff := p.now().Add(-age)
	var toDestroy []*Native
	for key, entries := range p.free {
		kept := entries[:0]
		for _, e := range entries {
			if e.returnsAt.Before(cutoff) {
				toDestroy = append(toDestroy, e.resource)
			} else {
				kept = append(kept, e)
			}
		}
		p.free[key] = kept
	}
	p.mu.Unlock()

	for _, n := range toDestroy {
		if err := destroy(n); err != nil {
			return err
		}
	}
	return nil
}
