//go:build windows

package interposer

// PipelineBinding is the subset of ID3D12GraphicsCommandList state the
// design notes call out as needing save/restore around a core-issued
// compute pass: root signature, pipeline state, descriptor heaps, the
// root parameters' CBV/SRV/UAV GPU addresses, and any bound 32-bit
// constants.
type PipelineBinding struct {
	RootSignature   NativePointer
	PipelineState   NativePointer
	DescriptorHeaps []NativePointer
	RootCBVs        map[uint32]uint64 // root parameter index -> GPU virtual address
	RootSRVs        map[uint32]uint64
	RootUAVs        map[uint32]uint64
	RootConstants   map[uint32][]uint32
}

func emptyBinding() PipelineBinding {
	return PipelineBinding{
		RootCBVs:      make(map[uint32]uint64),
		RootSRVs:      make(map[uint32]uint64),
		RootUAVs:      make(map[uint32]uint64),
		RootConstants: make(map[uint32][]uint32),
	}
}

// D3D12CommandList proxies ID3D12GraphicsCommandList: it mirrors the
// compute-pipeline binding state so that if the core temporarily binds its
// own state to run a compute pass, PopState restores the host's exact
// bindings afterward.
type D3D12CommandList struct {
	*Base

	stack   []PipelineBinding
	current PipelineBinding
}

// NewD3D12CommandList wraps base in a proxy.
func NewD3D12CommandList(base NativePointer) *D3D12CommandList {
	return &D3D12CommandList{Base: NewBase(base), current: emptyBinding()}
}

// SetRootSignature records the most recently bound root signature --
// called from the proxy's SetGraphicsRootSignature/SetComputeRootSignature
// forwarding path before the native call proceeds.
func (cl *D3D12CommandList) SetRootSignature(sig NativePointer) { cl.current.RootSignature = sig }

// SetPipelineState records the most recently bound PSO.
func (cl *D3D12CommandList) SetPipelineState(pso NativePointer) { cl.current.PipelineState = pso }

// SetDescriptorHeaps records the most recently bound descriptor heaps.
func (cl *D3D12CommandList) SetDescriptorHeaps(heaps []NativePointer) {
	cl.current.DescriptorHeaps = heaps
}

// SetRootConstantBufferView records a root CBV binding at rootParameterIndex.
func (cl *D3D12CommandList) SetRootConstantBufferView(rootParameterIndex uint32, gpuVirtualAddress uint64) {
	cl.current.RootCBVs[rootParameterIndex] = gpuVirtualAddress
}

// SetRootShaderResourceView records a root SRV binding.
func (cl *D3D12CommandList) SetRootShaderResourceView(rootParameterIndex uint32, gpuVirtualAddress uint64) {
	cl.current.RootSRVs[rootParameterIndex] = gpuVirtualAddress
}

// SetRootUnorderedAccessView records a root UAV binding.
func (cl *D3D12CommandList) SetRootUnorderedAccessView(rootParameterIndex uint32, gpuVirtualAddress uint64) {
	cl.current.RootUAVs[rootParameterIndex] = gpuVirtualAddress
}

// Set32BitConstants records a root-constants binding.
func (cl *D3D12CommandList) Set32BitConstants(rootParameterIndex uint32, values []uint32) {
	cl.current.RootConstants[rootParameterIndex] = values
}

// PushState snapshots the current binding state, for a core-issued compute
// pass that is about to rebind its own state onto this command list.
func (cl *D3D12CommandList) PushState() {
	cl.stack = append(cl.stack, cl.current)
	cl.current = emptyBinding()
}

// PopState restores the binding state from before the matching PushState.
// restore is the host's own set-of-native-calls that reapplies
// current.RootSignature/PipelineState/etc -- this proxy only owns the
// bookkeeping of what to reapply, not the native binding calls themselves.
func (cl *D3D12CommandList) PopState(restore func(PipelineBinding)) {
	if len(cl.stack) == 0 {
		return
	}
	n := len(cl.stack) - 1
	prior := cl.stack[n]
	cl.stack = cl.stack[:n]
	cl.current = prior
	if restore != nil {
		restore(prior)
	}
}

// Current returns a copy of the command list's presently tracked binding
// state, for diagnostics and tests.
func (cl *D3D12CommandList) Current() PipelineBinding { return cl.current }
