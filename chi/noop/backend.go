// Package noop is the headless chi.Backend used by tests and CI: every
// resource is a plain Go value and no native graphics call is issued:
// Dispatch calls are recorded, transitions update the Go-side descriptor
// state, and CopyResource copies the in-memory bytes between resources.
package noop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sl-streamline/core/chi"
)

// Backend is the no-op chi.Backend.
type Backend struct{}

// NewBackend constructs a no-op Backend.
func NewBackend() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "noop" }

func (b *Backend) NewDevice(allocateResource chi.AllocateResourceFunc) (chi.Device, error) {
	return &device{allocate: allocateResource}, nil
}

type nativeResource struct {
	id   uint64
	data []byte
}

var nextID atomic.Uint64

type device struct {
	mu       sync.Mutex
	allocate chi.AllocateResourceFunc

	// recorded captures every Dispatch call for test assertions.
	recorded []dispatchCall
}

type dispatchCall struct {
	ThreadID           uint64
	GroupsX, GroupsY, GroupsZ uint32
}

func (d *device) CreateBuffer(desc chi.Descriptor) (*chi.Native, error) {
	return d.create(desc)
}

func (d *device) CreateTexture2D(desc chi.Descriptor) (*chi.Native, error) {
	return d.create(desc)
}

func (d *device) create(desc chi.Descriptor) (*chi.Native, error) {
	if d.allocate != nil {
		handle, err := d.allocate(desc)
		if err != nil {
			return nil, err
		}
		return &chi.Native{Handle: handle, Descriptor: desc}, nil
	}
	res := &nativeResource{id: nextID.Add(1)}
	return &chi.Native{Handle: res, Descriptor: desc}, nil
}

func (d *device) DestroyResource(n *chi.Native) error { return nil }

func (d *device) BindKernel(threadID uint64, kernel *chi.Kernel) error       { return nil }
func (d *device) BindTexture(threadID uint64, slot uint32, res *chi.Native, mipOffset, mipLevels uint32) error {
	return nil
}
func (d *device) BindRWTexture(threadID uint64, slot uint32, res *chi.Native, mipOffset, mipLevels uint32) error {
	return nil
}
func (d *device) BindSampler(threadID uint64, slot uint32, desc chi.SamplerDescriptor) error {
	return nil
}
func (d *device) BindConsts(threadID uint64, slot uint32, data []byte) error { return nil }

func (d *device) Dispatch(threadID uint64, cmdList any, groupsX, groupsY, groupsZ uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorded = append(d.recorded, dispatchCall{ThreadID: threadID, GroupsX: groupsX, GroupsY: groupsY, GroupsZ: groupsZ})
	return nil
}

// Recorded returns every Dispatch call observed so far, for test assertions.
func (d *device) Recorded() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dispatchCall, len(d.recorded))
	copy(out, d.recorded)
	return out
}

func (d *device) TransitionResources(cmdList any, transitions []chi.TransitionTo) ([]chi.ReverseTransition, error) {
	reverses := make([]chi.ReverseTransition, 0, len(transitions))
	for _, t := range transitions {
		prev := t.Resource.Descriptor.State
		t.Resource.Descriptor.State = t.Target
		resource := t.Resource
		reverses = append(reverses, func(ctx context.Context, cmdList2 any) error {
			resource.Descriptor.State = prev
			return nil
		})
	}
	return reverses, nil
}

func (d *device) InsertGPUBarrier(cmdList any, resources []*chi.Native) error { return nil }

func (d *device) CopyResource(cmdList any, dst, src *chi.Native) error {
	srcRes, srcOK := src.Handle.(*nativeResource)
	dstRes, dstOK := dst.Handle.(*nativeResource)
	if srcOK && dstOK {
		dstRes.data = append([]byte(nil), srcRes.data...)
	}
	return nil
}

func (d *device) ClearView(cmdList any, res *chi.Native, rgba [4]float32) error { return nil }

func (d *device) NewCommandListContext(name string, ringSize int) (chi.CommandListContext, error) {
	if ringSize <= 0 {
		ringSize = chi.MaxFramesInFlight
	}
	return &commandListContext{slots: make([]uint64, ringSize)}, nil
}

// commandListContext is an always-immediately-complete ring: every submit
// is considered done the instant it is recorded, since there is no GPU to
// wait on.
type commandListContext struct {
	mu      sync.Mutex
	slots   []uint64
	current int
	counter uint64
}

func (c *commandListContext) BeginCommandList() (any, error) { return nil, nil }

func (c *commandListContext) ExecuteCommandList(info *chi.SubmitInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	c.slots[c.current] = c.counter
	c.current = (c.current + 1) % len(c.slots)
	return nil
}

func (c *commandListContext) WaitForCommandList(which chi.WaitTarget) error { return nil }

func (c *commandListContext) FlushAll(timeout time.Duration) error { return nil }
