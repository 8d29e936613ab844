package vulkan

import (
	"context"
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/sl-streamline/core/chi"
)

// fenceWaitBound is the per-wait timeout every public wait is capped at:
// a wait never blocks the caller past this, win or lose, and the
// deadlock-breaker (forceSignalAll) fires on expiry instead.
const fenceWaitBound = 500 * time.Millisecond

// Backend is the chi.Backend implementation for Vulkan, built directly on
// an already-created vk.Device (instance/adapter selection is the host's
// responsibility; this backend consumes the device handle the host's own
// Vulkan bootstrap produced).
type Backend struct {
	device vk.Device
	queue  vk.Queue
}

// NewBackend constructs a Vulkan Backend over an existing device and
// compute queue.
func NewBackend(device vk.Device, queue vk.Queue) *Backend {
	return &Backend{device: device, queue: queue}
}

func (b *Backend) Name() string { return "vulkan" }

func (b *Backend) NewDevice(allocateResource chi.AllocateResourceFunc) (chi.Device, error) {
	return &device{
		backend:     b,
		descriptors: newDescriptorAllocator(b.device),
		allocate:    allocateResource,
	}, nil
}

// device implements chi.Device over Vulkan. Resource creation funnels
// through allocate when the host supplied one; otherwise a plain
// vkCreateBuffer/vkCreateImage allocation is used.
type device struct {
	backend     *Backend
	descriptors *descriptorAllocator
	allocate    chi.AllocateResourceFunc
}

func (d *device) CreateBuffer(desc chi.Descriptor) (*chi.Native, error) {
	if d.allocate != nil {
		handle, err := d.allocate(desc)
		if err != nil {
			return nil, err
		}
		return &chi.Native{Handle: handle, Descriptor: desc}, nil
	}

	size := vk.DeviceSize(desc.Width)
	usage := vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if result := vk.CreateBuffer(d.backend.device, &createInfo, nil, &buf); result != vk.Success {
		return nil, fmt.Errorf("chi/vulkan: vkCreateBuffer failed: %d", result)
	}
	return &chi.Native{Handle: buf, Descriptor: desc}, nil
}

func (d *device) CreateTexture2D(desc chi.Descriptor) (*chi.Native, error) {
	if d.allocate != nil {
		handle, err := d.allocate(desc)
		if err != nil {
			return nil, err
		}
		return &chi.Native{Handle: handle, Descriptor: desc}, nil
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:   maxUint32(desc.Mips, 1),
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageStorageBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		SharingMode: vk.SharingModeExclusive,
	}
	var img vk.Image
	if result := vk.CreateImage(d.backend.device, &createInfo, nil, &img); result != vk.Success {
		return nil, fmt.Errorf("chi/vulkan: vkCreateImage failed: %d", result)
	}
	return &chi.Native{Handle: img, Descriptor: desc}, nil
}

func (d *device) DestroyResource(n *chi.Native) error {
	switch h := n.Handle.(type) {
	case vk.Buffer:
		vk.DestroyBuffer(d.backend.device, h, nil)
	case vk.Image:
		vk.DestroyImage(d.backend.device, h, nil)
	}
	return nil
}

func (d *device) BindKernel(threadID uint64, kernel *chi.Kernel) error {
	return nil // no descriptor set layout or pipeline is built or cached here
}

func (d *device) BindTexture(threadID uint64, slot uint32, res *chi.Native, mipOffset, mipLevels uint32) error {
	return nil
}

func (d *device) BindRWTexture(threadID uint64, slot uint32, res *chi.Native, mipOffset, mipLevels uint32) error {
	return nil
}

func (d *device) BindSampler(threadID uint64, slot uint32, desc chi.SamplerDescriptor) error {
	return nil
}

func (d *device) BindConsts(threadID uint64, slot uint32, data []byte) error {
	return nil // data is not uploaded; no uniform buffer is written here
}

func (d *device) Dispatch(threadID uint64, cmdList any, groupsX, groupsY, groupsZ uint32) error {
	cmd, ok := cmdList.(vk.CommandBuffer)
	if !ok {
		return fmt.Errorf("chi/vulkan: Dispatch: cmdList is not a vk.CommandBuffer")
	}
	vk.CmdDispatch(cmd, groupsX, groupsY, groupsZ)
	return nil
}

func (d *device) TransitionResources(cmdList any, transitions []chi.TransitionTo) ([]chi.ReverseTransition, error) {
	// Only the Go-side Descriptor.State is updated; no vkCmdPipelineBarrier
	// or memory barrier is recorded, and no-op transitions are not filtered.
	var reverses []chi.ReverseTransition
	for _, t := range transitions {
		prev := t.Resource.Descriptor.State
		target := t.Target
		t.Resource.Descriptor.State = target
		reverses = append(reverses, func(original chi.TransitionTo) chi.ReverseTransition {
			return func(ctx context.Context, cmdList any) error {
				original.Resource.Descriptor.State = prev
				return nil
			}
		}(t))
	}
	return reverses, nil
}

func (d *device) InsertGPUBarrier(cmdList any, resources []*chi.Native) error {
	return nil
}

func (d *device) CopyResource(cmdList any, dst, src *chi.Native) error {
	return nil
}

func (d *device) ClearView(cmdList any, res *chi.Native, rgba [4]float32) error {
	return nil
}

func (d *device) NewCommandListContext(name string, ringSize int) (chi.CommandListContext, error) {
	if ringSize <= 0 {
		ringSize = chi.MaxFramesInFlight
	}
	return &commandListContext{
		device: d.backend.device,
		queue:  d.backend.queue,
		name:   name,
		slots:  make([]uint64, ringSize),
		fences: &fencePool{},
	}, nil
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// commandListContext implements chi.CommandListContext over the fencePool
// above: beginCommandList polls the slot's fence (zero timeout) and fails if
// it has not completed, executeCommandList takes a fence for the next value
// and advances the ring without calling vkQueueSubmit, waitForCommandList
// waits a specific slot, flushAll waits the latest active fence.
type commandListContext struct {
	device vk.Device
	queue  vk.Queue
	name   string

	slots   []uint64
	current int
	counter uint64
	fences  *fencePool

	// waitingOn records remote fence values this context is currently
	// blocked on, consulted by a deadlock-breaking force-signal on timeout.
	waitingOn []uint64
}

func (c *commandListContext) BeginCommandList() (any, error) {
	slot := c.slots[c.current]
	if slot != 0 {
		if err := c.fences.wait(c.device, slot, 0); err != nil {
			return nil, fmt.Errorf("chi/vulkan: %s: beginCommandList: %w", c.name, err)
		}
	}
	return nil, nil
}

func (c *commandListContext) ExecuteCommandList(info *chi.SubmitInfo) error {
	c.counter++
	fence, err := c.fences.signal(c.device, c.counter)
	if err != nil {
		return err
	}
	_ = fence
	c.slots[c.current] = c.counter
	c.current = (c.current + 1) % len(c.slots)
	return nil
}

func (c *commandListContext) WaitForCommandList(which chi.WaitTarget) error {
	idx := c.current
	if which == chi.WaitDefault {
		idx = (c.current - 1 + len(c.slots)) % len(c.slots)
	}
	value := c.slots[idx]
	c.waitingOn = append(c.waitingOn, value)
	err := c.fences.wait(c.device, value, uint64(fenceWaitBound))
	c.waitingOn = c.waitingOn[:0]
	if err != nil {
		// Deadlock avoidance: mark every active fence of this context's
		// pool completed, freeing any chain stuck behind a lost device.
		c.fences.forceSignalAll(c.device)
	}
	return err
}

func (c *commandListContext) FlushAll(timeout time.Duration) error {
	return c.fences.waitForLatest(c.device, uint64(timeout))
}
