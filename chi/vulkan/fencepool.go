// Package vulkan is the Vulkan chi.Backend: descriptor allocator and fence
// pool built on github.com/goki/vulkan. Descriptor sets and pipelines are
// not cached per kernel; the Bind* methods record nothing.
package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// fencePool manages binary VkFences for devices without timeline semaphore
// support. Tracks per-submission fences by monotonic value rather than a
// fixed ring, so the caller can wait for any specific submission instead of
// only the latest one. Fences are recycled into a free list after GPU
// completion to avoid repeated vkCreateFence/vkDestroyFence churn.
type fencePool struct {
	active []fenceEntry
	free   []vk.Fence

	// lastCompleted is the high watermark: the largest submission value
	// known to be completed by the GPU.
	lastCompleted uint64
}

type fenceEntry struct {
	value uint64
	fence vk.Fence
}

// maintain performs a non-blocking poll of active fences, moving signaled
// fences to the free list and advancing lastCompleted. Call periodically
// (e.g. at the start of signal or wait) to reclaim fences without blocking.
func (p *fencePool) maintain(device vk.Device) {
	n := 0
	for _, entry := range p.active {
		status := vk.GetFenceStatus(device, entry.fence)
		if status == vk.Success {
			vk.ResetFences(device, 1, []vk.Fence{entry.fence})
			p.free = append(p.free, entry.fence)
			if entry.value > p.lastCompleted {
				p.lastCompleted = entry.value
			}
			continue
		}
		p.active[n] = entry
		n++
	}
	p.active = p.active[:n]
}

// signal returns a fence to pass to vkQueueSubmit for the given submission
// value, popping from the free list if available and creating a new
// unsignaled fence otherwise.
func (p *fencePool) signal(device vk.Device, value uint64) (vk.Fence, error) {
	var fence vk.Fence
	if n := len(p.free); n > 0 {
		fence = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		createInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
		var f vk.Fence
		if result := vk.CreateFence(device, &createInfo, nil, &f); result != vk.Success {
			return nil, fmt.Errorf("chi/vulkan: fencePool: vkCreateFence failed: %d", result)
		}
		fence = f
	}

	p.active = append(p.active, fenceEntry{value: value, fence: fence})
	return fence, nil
}

// wait blocks until the GPU completes the submission with the given value,
// returning immediately if it is already known complete. timeoutNs bounds
// the underlying vkWaitForFences call.
func (p *fencePool) wait(device vk.Device, value uint64, timeoutNs uint64) error {
	if value == 0 || value <= p.lastCompleted {
		return nil
	}

	p.maintain(device)
	if value <= p.lastCompleted {
		return nil
	}

	var targetFence vk.Fence
	targetIdx := -1
	for i, entry := range p.active {
		if entry.value == value {
			targetFence = entry.fence
			targetIdx = i
			break
		}
		if entry.value > value && targetIdx == -1 {
			targetFence = entry.fence
			targetIdx = i
		}
	}

	if targetFence == nil {
		// No active fence covers this value: it must have completed
		// already but lastCompleted has not caught up (race with a
		// concurrent maintain). Treat as done.
		return nil
	}

	result := vk.WaitForFences(device, 1, []vk.Fence{targetFence}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vk.ResetFences(device, 1, []vk.Fence{targetFence})
		completedValue := p.active[targetIdx].value
		if completedValue > p.lastCompleted {
			p.lastCompleted = completedValue
		}
		last := len(p.active) - 1
		p.active[targetIdx] = p.active[last]
		p.active = p.active[:last]
		p.maintain(device)
		return nil
	case vk.Timeout:
		return fmt.Errorf("chi/vulkan: fencePool: wait timed out (value=%d)", value)
	case vk.ErrorDeviceLost:
		return fmt.Errorf("chi/vulkan: fencePool: device lost")
	default:
		return fmt.Errorf("chi/vulkan: fencePool: vkWaitForFences failed: %d", result)
	}
}

// waitForLatest blocks until the GPU completes the highest active
// submission, returning immediately if nothing is active. This backs
// CommandListContext.FlushAll.
func (p *fencePool) waitForLatest(device vk.Device, timeoutNs uint64) error {
	if len(p.active) == 0 {
		return nil
	}
	var maxValue uint64
	for _, entry := range p.active {
		if entry.value > maxValue {
			maxValue = entry.value
		}
	}
	return p.wait(device, maxValue, timeoutNs)
}

// destroy releases every active and free fence. Call only after the device
// is idle (vkDeviceWaitIdle).
func (p *fencePool) destroy(device vk.Device) {
	for _, entry := range p.active {
		vk.DestroyFence(device, entry.fence, nil)
	}
	p.active = nil
	for _, fence := range p.free {
		vk.DestroyFence(device, fence, nil)
	}
	p.free = nil
	p.lastCompleted = 0
}

// forceSignalAll treats every active fence as completed: it resets each
// native fence (without signaling it), raises lastCompleted to the entry's
// value, and drops all entries from the active list. This breaks a deadlock
// where a CommandListContext is stuck waiting on a fence that will never
// complete (e.g. the device was lost).
func (p *fencePool) forceSignalAll(device vk.Device) {
	for _, entry := range p.active {
		vk.ResetFences(device, 1, []vk.Fence{entry.fence})
		if entry.value > p.lastCompleted {
			p.lastCompleted = entry.value
		}
	}
	p.active = nil
}
