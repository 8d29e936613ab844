package track

import "sync/atomic"

// TrackingData is the allocator-backed handle a chi/d3d12 device keeps
// alongside each resource's TrackerIndex: it owns the index's lifetime so a
// DestroyResource that somehow runs twice against the same chi.Native frees
// the index at most once, instead of pushing it onto the allocator's free
// list twice and handing the same dense index to two live resources.
type TrackingData struct {
	index     TrackerIndex
	allocator *SharedTrackerIndexAllocator
	released  atomic.Uint32 // 0 = active, 1 = released
}

// NewTrackingData allocates a fresh index from allocator. A nil allocator
// yields an inert TrackingData whose Index is always InvalidTrackerIndex
// and whose Release is a no-op -- the shape a backend that doesn't track a
// given resource kind needs without a nil check at every call site.
func NewTrackingData(allocator *SharedTrackerIndexAllocator) *TrackingData {
	if allocator == nil {
		return &TrackingData{index: InvalidTrackerIndex}
	}
	return &TrackingData{index: allocator.Alloc(), allocator: allocator}
}

// Index returns the assigned tracker index, stable for this TrackingData's
// lifetime.
func (t *TrackingData) Index() TrackerIndex {
	return t.index
}

// IsReleased reports whether Release has already run.
func (t *TrackingData) IsReleased() bool {
	return t.released.Load() != 0
}

// Release frees the tracker index back to the allocator. Safe to call more
// than once; only the first call has any effect.
func (t *TrackingData) Release() {
	if !t.released.CompareAndSwap(0, 1) {
		return
	}
	if t.allocator != nil {
		t.allocator.Free(t.index)
	}
}
