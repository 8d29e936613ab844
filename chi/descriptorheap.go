package chi

import (
	"fmt"
	"sync"

	"github.com/sl-streamline/core/internal/log"
)

// Descriptor heap sizing mirrors the D3D12 backend's fixed-capacity heap:
// SL_MAX_D3D12_DESCRIPTORS cached views before the cache must be cleared,
// doubled by SL_DESCRIPTOR_WRAPAROUND_CAPACITY so the half just retired
// stays valid for any GPU work still in flight against it.
const (
	MaxD3D12Descriptors          = 1024
	DescriptorWraparoundCapacity = 2
	descriptorHeapCapacity       = MaxD3D12Descriptors * DescriptorWraparoundCapacity
)

// descriptorSlotKey is the SRV/UAV cache key: a view is keyed by the
// resource it was created over plus the mip range requested.
type descriptorSlotKey struct {
	resource           *Native
	mipOffset, mipLevels uint32
	rw                 bool
}

// DescriptorHeap models a D3D12-style descriptor heap generically enough
// that D3D11 and Vulkan backends can implement the same caching contract
// over their own view/descriptor-set primitives: views are created or
// fetched from a cache keyed by (resource, mipOffset, mipLevels), and the
// heap itself is a fixed-capacity ring that wraps around, relying on the
// frame-delay of destroy queues elsewhere to guarantee an overwritten slot
// is never still in flight on the GPU.
type DescriptorHeap struct {
	mu       sync.Mutex
	cache    map[descriptorSlotKey]uint32 // -> GPU handle / heap index
	next     uint32
	capacity uint32
	created  uint32 // cached views created since the last wraparound clear
	create   func(res *Native, mipOffset, mipLevels uint32, rw bool) (uint32, error)
}

// NewDescriptorHeap constructs a DescriptorHeap of the given capacity
// (0 defaults to descriptorHeapCapacity), backed by create for cache misses.
func NewDescriptorHeap(capacity uint32, create func(res *Native, mipOffset, mipLevels uint32, rw bool) (uint32, error)) *DescriptorHeap {
	if capacity == 0 {
		capacity = descriptorHeapCapacity
	}
	return &DescriptorHeap{
		cache:    make(map[descriptorSlotKey]uint32),
		capacity: capacity,
		create:   create,
	}
}

// FetchOrCreate returns the cached GPU handle/index for (res, mipOffset,
// mipLevels, rw), creating one via create (or, if create is nil, the
// heap's own ring allocator) and wrapping the ring if not already cached.
// After exactly MaxD3D12Descriptors cached-view creations, the next
// creation clears the cache and logs one warning before proceeding, per
// the double-buffered wraparound contract the heap-sizing constants above
// describe.
func (h *DescriptorHeap) FetchOrCreate(res *Native, mipOffset, mipLevels uint32, rw bool) (uint32, error) {
	key := descriptorSlotKey{resource: res, mipOffset: mipOffset, mipLevels: mipLevels, rw: rw}

	h.mu.Lock()
	if idx, ok := h.cache[key]; ok {
		h.mu.Unlock()
		return idx, nil
	}
	if h.created >= MaxD3D12Descriptors {
		h.cache = make(map[descriptorSlotKey]uint32)
		h.created = 0
		log.Warnf("chi: descriptor heap wrapped after %d cached views, clearing cache", MaxD3D12Descriptors)
	}
	h.mu.Unlock()

	idx := h.Allocate()
	if h.create != nil {
		created, err := h.create(res, mipOffset, mipLevels, rw)
		if err != nil {
			return 0, fmt.Errorf("chi: descriptor heap create: %w", err)
		}
		idx = created
	}

	h.mu.Lock()
	h.cache[key] = idx
	h.created++
	h.mu.Unlock()
	return idx, nil
}

// Invalidate removes every cached descriptor referencing res, called when
// res is destroyed so a future allocation at the same native address does
// not serve a stale cached view.
func (h *DescriptorHeap) Invalidate(res *Native) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.cache {
		if k.resource == res {
			delete(h.cache, k)
		}
	}
}

// Allocate returns the next ring index, wrapping around at capacity. Used
// directly by backends that don't need the resource-keyed cache above (e.g.
// a constant-buffer descriptor allocated fresh every bindConsts call).
func (h *DescriptorHeap) Allocate() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := h.next % h.capacity
	h.next++
	return idx
}
