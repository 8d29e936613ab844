package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
)

// descriptorPool wraps a VkDescriptorPool with allocation-count tracking.
type descriptorPool struct {
	handle        vk.DescriptorPool
	maxSets       uint32
	allocatedSets uint32
}

// descriptorAllocator manages descriptor pool allocation for the Vulkan
// backend's dispatch path: one allocator per device (not per pipeline),
// whose pools start at 64 sets and grow as needed. On-demand pool growth with FREE_DESCRIPTOR_SET_BIT lets
// individual sets be freed without destroying the whole pool.
type descriptorAllocator struct {
	mu     sync.Mutex
	device vk.Device
	pools  []*descriptorPool

	initialPoolSize uint32
	maxPoolSize     uint32
	growthFactor    uint32

	totalAllocated, totalFreed uint32
}

// newDescriptorAllocator constructs a descriptorAllocator with the spec's
// default pool sizing (64 initial sets, doubling up to 4096).
func newDescriptorAllocator(device vk.Device) *descriptorAllocator {
	return &descriptorAllocator{
		device:          device,
		initialPoolSize: 64,
		maxPoolSize:     4096,
		growthFactor:    2,
	}
}

// allocate returns a descriptor set from layout, growing a new pool if none
// of the existing pools has room.
func (a *descriptorAllocator) allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, *descriptorPool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, pool := range a.pools {
		if pool.allocatedSets >= pool.maxSets {
			continue
		}
		if set, err := a.allocateFromPool(pool, layout); err == nil {
			pool.allocatedSets++
			a.totalAllocated++
			return set, pool, nil
		}
	}

	pool, err := a.createPool()
	if err != nil {
		return nil, nil, fmt.Errorf("chi/vulkan: create descriptor pool: %w", err)
	}
	a.pools = append(a.pools, pool)

	set, err := a.allocateFromPool(pool, layout)
	if err != nil {
		return nil, nil, fmt.Errorf("chi/vulkan: allocate from new pool: %w", err)
	}
	pool.allocatedSets++
	a.totalAllocated++
	return set, pool, nil
}

func (a *descriptorAllocator) allocateFromPool(pool *descriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	layouts := []vk.DescriptorSetLayout{layout}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        &layouts[0],
	}
	sets := make([]vk.DescriptorSet, 1)
	if result := vk.AllocateDescriptorSets(a.device, &allocInfo, &sets[0]); result != vk.Success {
		return nil, fmt.Errorf("vkAllocateDescriptorSets failed: %d", result)
	}
	return sets[0], nil
}

// free returns set to pool.
func (a *descriptorAllocator) free(pool *descriptorPool, set vk.DescriptorSet) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	sets := []vk.DescriptorSet{set}
	if result := vk.FreeDescriptorSets(a.device, pool.handle, 1, &sets[0]); result != vk.Success {
		return fmt.Errorf("vkFreeDescriptorSets failed: %d", result)
	}
	pool.allocatedSets--
	a.totalFreed++
	return nil
}

func (a *descriptorAllocator) createPool() (*descriptorPool, error) {
	poolSize := a.initialPoolSize
	for range a.pools {
		poolSize *= a.growthFactor
		if poolSize > a.maxPoolSize {
			poolSize = a.maxPoolSize
			break
		}
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampler, DescriptorCount: poolSize},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: poolSize},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: poolSize / 4},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: poolSize},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: poolSize / 2},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: poolSize},
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       poolSize,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    &poolSizes[0],
	}

	var handle vk.DescriptorPool
	if result := vk.CreateDescriptorPool(a.device, &createInfo, nil, &handle); result != vk.Success {
		return nil, fmt.Errorf("vkCreateDescriptorPool failed: %d", result)
	}

	return &descriptorPool{handle: handle, maxSets: poolSize}, nil
}

// destroy releases every descriptor pool.
func (a *descriptorAllocator) destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, pool := range a.pools {
		vk.DestroyDescriptorPool(a.device, pool.handle, nil)
	}
	a.pools = nil
}

// stats returns allocator statistics.
func (a *descriptorAllocator) stats() (pools int, allocated, freed uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pools), a.totalAllocated, a.totalFreed
}
