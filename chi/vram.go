package chi

import (
	"sync"

	"github.com/sl-streamline/core/internal/slthread"
)

// Segment accumulates the bytes allocated under one beginVRAMSegment /
// endVRAMSegment bracket.
type Segment struct {
	Name      string
	Bytes     int64
	Resources int
}

// VRAMAccounting tracks VRAM usage both per-thread-local segment (bracketed
// by BeginSegment/EndSegment) and globally. RecordAllocate updates both;
// RecordDestroy updates only the global segment. The backends' CreateBuffer,
// CreateTexture2D and DestroyResource do not call either.
type VRAMAccounting struct {
	mu     sync.Mutex
	global Segment
	stacks *slthread.Context[[]Segment]

	budgetCurrent, budgetTotal uint64
}

// NewVRAMAccounting constructs an empty VRAMAccounting.
func NewVRAMAccounting() *VRAMAccounting {
	return &VRAMAccounting{stacks: slthread.NewContext[[]Segment]()}
}

// BeginSegment pushes a named segment onto the current thread's stack.
func (v *VRAMAccounting) BeginSegment(threadID uint64, name string) {
	stack := v.stacks.GetOrCreate(threadID, func() []Segment { return nil })
	v.stacks.Set(threadID, append(stack, Segment{Name: name}))
}

// EndSegment pops the current thread's innermost segment and returns it.
// Returns the zero Segment if no segment is open.
func (v *VRAMAccounting) EndSegment(threadID uint64) Segment {
	stack, ok := v.stacks.Get(threadID)
	if !ok || len(stack) == 0 {
		return Segment{}
	}
	last := len(stack) - 1
	seg := stack[last]
	v.stacks.Set(threadID, stack[:last])
	return seg
}

// RecordAllocate attributes a new allocation of size bytes to the current
// thread's innermost open segment (if any) and to the global segment.
func (v *VRAMAccounting) RecordAllocate(threadID uint64, size int64) {
	v.mu.Lock()
	v.global.Bytes += size
	v.global.Resources++
	if v.budgetTotal > 0 {
		v.budgetCurrent += uint64(size)
	}
	v.mu.Unlock()

	if stack, ok := v.stacks.Get(threadID); ok && len(stack) > 0 {
		stack[len(stack)-1].Bytes += size
		stack[len(stack)-1].Resources++
		v.stacks.Set(threadID, stack)
	}
}

// RecordDestroy removes size bytes from the global segment's accounting.
func (v *VRAMAccounting) RecordDestroy(size int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.global.Bytes -= size
	v.global.Resources--
	if v.budgetTotal > 0 && uint64(size) <= v.budgetCurrent {
		v.budgetCurrent -= uint64(size)
	}
}

// SetBudget sets this accounting's VRAM budget. Pool keeps its own budget
// (Pool.SetVRAMBudget), which is what its waitHint reads.
func (v *VRAMAccounting) SetBudget(current, total uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.budgetCurrent, v.budgetTotal = current, total
}

// Global returns a snapshot of the process-wide VRAM segment.
func (v *VRAMAccounting) Global() Segment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.global
}

// deferredDestroy is one non-pooled resource awaiting native destruction,
// retired once finishedFrame has caught up to the frame it was queued on
// plus frameDelay.
type deferredDestroy struct {
	resource  *Native
	queuedAt  uint32
	destroyFn func(*Native) error
}

// DestroyQueue defers native destruction of non-pooled resources by
// frameDelay frames (default 3), draining via CollectGarbage(finishedFrame)
// the same way Pool's recycle-timeout sweep does, so both feed one garbage
// pass.
type DestroyQueue struct {
	mu         sync.Mutex
	pending    []deferredDestroy
	frameDelay uint32
}

// NewDestroyQueue constructs a DestroyQueue with the given frame delay.
func NewDestroyQueue(frameDelay uint32) *DestroyQueue {
	if frameDelay == 0 {
		frameDelay = 3
	}
	return &DestroyQueue{frameDelay: frameDelay}
}

// Enqueue defers resource's destruction via destroyFn until currentFrame has
// advanced by frameDelay frames.
func (q *DestroyQueue) Enqueue(resource *Native, currentFrame uint32, destroyFn func(*Native) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, deferredDestroy{resource: resource, queuedAt: currentFrame, destroyFn: destroyFn})
}

// CollectGarbage destroys every deferred resource whose queue-frame plus
// frameDelay is at or before finishedFrame.
func (q *DestroyQueue) CollectGarbage(finishedFrame uint32) error {
	q.mu.Lock()
	var ready []deferredDestroy
	kept := q.pending[:0]
	for _, d := range q.pending {
		if d.queuedAt+q.frameDelay <= finishedFrame {
			ready = append(ready, d)
		} else {
			kept = append(kept, d)
		}
	}
	q.pending = kept
	q.mu.Unlock()

	for _, d := range ready {
		if err := d.destroyFn(d.resource); err != nil {
			return err
		}
	}
	return nil
}
