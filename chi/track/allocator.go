// Package track implements the buffer-usage tracking the D3D12 chi.Backend
// uses to reject conflicting same-scope transitions before they ever reach
// the GPU (§4.3's dispatch path), plus the dense TrackerIndex allocator
// chi.Native.TrackerIndex is assigned from.
//
// # Architecture
//
// A chi/d3d12 device owns one SharedTrackerIndexAllocator: every resource
// CreateBuffer/CreateTexture2D produces is assigned a dense TrackerIndex
// from it, freed back on DestroyResource. Dense indices let BufferTracker
// and BufferUsageScope key their per-resource state on a plain slice instead
// of a resource-id map.
//
// # Thread Safety
//
// SharedTrackerIndexAllocator is safe for concurrent use; the underlying
// TrackerIndexAllocator serializes Alloc/Free under a mutex.
package track

import "sync"

// TrackerIndex is a dense index into a device's resource-tracking arrays,
// distinct from the backend-specific resource id (*ID3D12Resource address,
// VkBuffer handle) the index is assigned alongside.
type TrackerIndex uint32

// InvalidTrackerIndex marks an unassigned tracker index. Max uint32 so it
// never collides with a fresh dense allocation.
const InvalidTrackerIndex TrackerIndex = ^TrackerIndex(0)

// IsValid reports whether this is an assigned tracker index.
func (i TrackerIndex) IsValid() bool {
	return i != InvalidTrackerIndex
}

// TrackerIndexAllocator hands out dense tracker indices, reusing freed ones
// before minting new ones so the high-water mark stays close to the live
// resource count even under churn.
type TrackerIndexAllocator struct {
	mu        sync.Mutex
	unused    []TrackerIndex
	nextIndex TrackerIndex
}

// NewTrackerIndexAllocator creates an empty allocator.
func NewTrackerIndexAllocator() *TrackerIndexAllocator {
	return &TrackerIndexAllocator{
		unused: make([]TrackerIndex, 0, 64),
	}
}

// Alloc returns a freed index if one is available (LIFO, for cache
// locality), otherwise mints a fresh one.
func (a *TrackerIndexAllocator) Alloc() TrackerIndex {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.unused); n > 0 {
		idx := a.unused[n-1]
		a.unused = a.unused[:n-1]
		return idx
	}

	idx := a.nextIndex
	a.nextIndex++
	return idx
}

// Free returns idx to the pool for reuse. A no-op for InvalidTrackerIndex.
func (a *TrackerIndexAllocator) Free(idx TrackerIndex) {
	if idx == InvalidTrackerIndex {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = append(a.unused, idx)
}

// Size returns the number of indices currently allocated (not freed).
func (a *TrackerIndexAllocator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.nextIndex) - len(a.unused)
}

// HighWaterMark returns the highest index ever minted, for sizing tracking
// arrays ahead of time. InvalidTrackerIndex if nothing has been allocated.
func (a *TrackerIndexAllocator) HighWaterMark() TrackerIndex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nextIndex == 0 {
		return InvalidTrackerIndex
	}
	return a.nextIndex - 1
}

// Reset invalidates every previously allocated index. Any chi.Native still
// holding an old TrackerIndex becomes stale; callers must not retain one
// across a Reset.
func (a *TrackerIndexAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = a.unused[:0]
	a.nextIndex = 0
}

// SharedTrackerIndexAllocator is the handle a chi.Device keeps: a
// thread-safe reference to one TrackerIndexAllocator, shared between the
// device and every resource it tracks.
type SharedTrackerIndexAllocator struct {
	inner *TrackerIndexAllocator
}

// NewSharedTrackerIndexAllocator constructs a fresh allocator for one
// chi.Device.
func NewSharedTrackerIndexAllocator() *SharedTrackerIndexAllocator {
	return &SharedTrackerIndexAllocator{inner: NewTrackerIndexAllocator()}
}

func (s *SharedTrackerIndexAllocator) Alloc() TrackerIndex { return s.inner.Alloc() }

func (s *SharedTrackerIndexAllocator) Free(idx TrackerIndex) { s.inner.Free(idx) }

func (s *SharedTrackerIndexAllocator) Size() int { return s.inner.Size() }

func (s *SharedTrackerIndexAllocator) HighWaterMark() TrackerIndex { return s.inner.HighWaterMark() }
