package chi

import (
	"context"
	"time"
)

// MaxFramesInFlight bounds the command-list ring and the default number of
// instances in a constant ring: the engine never queues more frames ahead of
// the GPU than this before WaitForCommandList applies backpressure.
const MaxFramesInFlight = 3

// TransitionTo is one requested element of a transitionResources batch: move
// resource to the given target state.
type TransitionTo struct {
	Resource *Native
	Target   State
}

// ReverseTransition is the lambda-equivalent pushed when transitionResources
// is called with balanced-transition tracking: invoking it restores the
// resources to the state they held before the forward transition.
type ReverseTransition func(ctx context.Context, cmdList any) error

// KernelDispatchData is the per-kernel state bindKernel stashes under the
// current thread: the root signature / pipeline layout the subsequent
// bindTexture/bindRWTexture/bindConsts/dispatch calls accumulate bindings
// into, keyed by kernel hash.
type KernelDispatchData struct {
	KernelHash   uint64
	RootSigHash  uint64
	Ranges       []BindingRange
	ConstsOffset uint32
}

// BindingRange is one accumulated root-signature / descriptor-set range:
// a contiguous run of descriptors of one kind starting at BaseSlot.
type BindingRange struct {
	Kind     BindingKind
	BaseSlot uint32
	Count    uint32
}

// BindingKind enumerates the distinct binding categories a root signature /
// descriptor set range can hold.
type BindingKind int

const (
	BindingTexture BindingKind = iota
	BindingRWTexture
	BindingSampler
	BindingConstants
)

// Backend is the graphics-API-specific implementation a Device is built on.
// chi/d3d11, chi/d3d12, chi/vulkan, and chi/noop each provide one.
type Backend interface {
	Name() string
	NewDevice(allocateResource AllocateResourceFunc) (Device, error)
}

// AllocateResourceFunc is the optional host allocator callback: if supplied,
// Device.CreateBuffer/CreateTexture2D delegate allocation to the host
// (needed by engines with pool allocators) instead of using standard heap
// allocation.
type AllocateResourceFunc func(desc Descriptor) (any, error)

// Device is the backend-specific imperative recording API: resource
// creation, kernel binding, dispatch, and resource-state transitions, used
// identically by callers regardless of which of D3D11, D3D12, or Vulkan
// backs it.
type Device interface {
	CreateBuffer(desc Descriptor) (*Native, error)
	CreateTexture2D(desc Descriptor) (*Native, error)
	DestroyResource(n *Native) error

	BindKernel(threadID uint64, kernel *Kernel) error
	BindTexture(threadID uint64, slot uint32, res *Native, mipOffset, mipLevels uint32) error
	BindRWTexture(threadID uint64, slot uint32, res *Native, mipOffset, mipLevels uint32) error
	BindSampler(threadID uint64, slot uint32, desc SamplerDescriptor) error
	BindConsts(threadID uint64, slot uint32, data []byte) error
	Dispatch(threadID uint64, cmdList any, groupsX, groupsY, groupsZ uint32) error

	TransitionResources(cmdList any, transitions []TransitionTo) ([]ReverseTransition, error)
	InsertGPUBarrier(cmdList any, resources []*Native) error
	CopyResource(cmdList any, dst, src *Native) error
	ClearView(cmdList any, res *Native, rgba [4]float32) error

	NewCommandListContext(name string, ringSize int) (CommandListContext, error)
}

// SamplerDescriptor is the portable sampler state bindSampler configures.
type SamplerDescriptor struct {
	MinFilter, MagFilter int
	AddressMode          [3]int
}

// CommandListContext is the command-list/fence ring contract every backend
// implements identically: beginCommandList resets the allocator only if the
// slot's fence has completed previously-submitted work, executeCommandList
// submits and advances the ring, waitForCommandList waits on a specific
// slot, and flushAll drains every slot.
type CommandListContext interface {
	BeginCommandList() (cmdList any, err error)
	ExecuteCommandList(info *SubmitInfo) error
	WaitForCommandList(which WaitTarget) error
	FlushAll(timeout time.Duration) error
}

// SubmitInfo carries the optional semaphore wait/signal lists
// executeCommandList consults.
type SubmitInfo struct {
	WaitSemaphores, SignalSemaphores []any
	WaitValues, SignalValues         []uint64
}

// WaitTarget selects which ring slot waitForCommandList waits on.
type WaitTarget int

const (
	WaitCurrent WaitTarget = iota
	WaitDefault
)
