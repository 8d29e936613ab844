// Package vulkan implements the Vulkan half of the interposer: rather than
// per-interface vtable proxies (as the D3D11/D3D12 interposer uses), a
// per-device Table wraps the intercepted Vulkan commands, in the spirit of
// a real Vulkan layer's vkGetInstanceProcAddr/vkGetDeviceProcAddr dispatch
// table; no function pointers are resolved or stored -- each wrapper calls
// goki/vulkan's vk.* function directly (idiom grounded on
// gviegas-neo3/driver/vk's generated procedure tables; not imported, since
// this module talks to Vulkan through github.com/goki/vulkan directly).
// Registering as an installable ICD layer (a JSON manifest plus a
// standalone shared library the Vulkan loader discovers via
// VK_LAYER_PATH) is out of scope here -- this dispatch table intercepts
// in-process, at the call sites the core itself issues through chi/vulkan
// and the commands the host's own engine issues through this package's
// wrapped entry points.
package vulkan

import vk "github.com/goki/vulkan"

// Commands of interest this layer intercepts, matching the design notes'
// named list: bind-pipeline and bind-descriptor-sets (state to restore
// after a core compute pass), begin-command-buffer (reset the tracked
// binding state), and queue-present (the same skip/present-hook contract
// the D3D11/D3D12 interposer's DXGISwapChain.Present implements).
type Intercept int

const (
	InterceptCmdBindPipeline Intercept = iota
	InterceptCmdBindDescriptorSets
	InterceptBeginCommandBuffer
	InterceptQueuePresentKHR
)

// BoundState is what this layer tracks per command buffer so a core
// compute pass can push/pop around its own bindings, mirroring
// interposer.PipelineBinding's role on the D3D12 side.
type BoundState struct {
	Pipeline        vk.Pipeline
	PipelineLayout  vk.PipelineLayout
	DescriptorSets  []vk.DescriptorSet
	FirstSet        uint32
}

// Table is the per-device dispatch table. It holds no resolved entry
// points, only the device and the binding-state stack per command buffer
// this layer maintains to restore the host's own bindings after a
// core-issued dispatch.
type Table struct {
	device vk.Device

	stacks map[vk.CommandBuffer][]BoundState
	bound  map[vk.CommandBuffer]BoundState
}

// NewTable constructs a dispatch table for device. The real entry-point
// resolution (vkGetDeviceProcAddr for every intercepted command) is the
// host's own responsibility when it calls through this package's wrapped
// functions below; Table only owns the binding-state bookkeeping, since
// goki/vulkan already exposes every vk.Cmd* entry point as a direct Go
// call rather than requiring manual PFN resolution.
func NewTable(device vk.Device) *Table {
	return &Table{
		device: device,
		stacks: make(map[vk.CommandBuffer][]BoundState),
		bound:  make(map[vk.CommandBuffer]BoundState),
	}
}

// CmdBindPipeline records the bound pipeline for cmdBuf, then forwards to
// vk.CmdBindPipeline.
func (t *Table) CmdBindPipeline(cmdBuf vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	b := t.bound[cmdBuf]
	b.Pipeline = pipeline
	t.bound[cmdBuf] = b
	vk.CmdBindPipeline(cmdBuf, bindPoint, pipeline)
}

// CmdBindDescriptorSets records the bound descriptor sets for cmdBuf, then
// forwards to vk.CmdBindDescriptorSets.
func (t *Table) CmdBindDescriptorSets(cmdBuf vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	b := t.bound[cmdBuf]
	b.PipelineLayout = layout
	b.FirstSet = firstSet
	b.DescriptorSets = sets
	t.bound[cmdBuf] = b
	vk.CmdBindDescriptorSets(cmdBuf, bindPoint, layout, firstSet, uint32(len(sets)), sets, 0, nil)
}

// PushState snapshots cmdBuf's currently tracked bindings so a core
// compute pass can rebind its own pipeline/descriptor sets onto it.
func (t *Table) PushState(cmdBuf vk.CommandBuffer) {
	t.stacks[cmdBuf] = append(t.stacks[cmdBuf], t.bound[cmdBuf])
	t.bound[cmdBuf] = BoundState{}
}

// PopState restores the binding snapshot from the matching PushState,
// invoking rebind with the prior state so the caller can reissue the
// vk.CmdBindPipeline/CmdBindDescriptorSets calls that put the host's
// bindings back.
func (t *Table) PopState(cmdBuf vk.CommandBuffer, rebind func(BoundState)) {
	stack := t.stacks[cmdBuf]
	if len(stack) == 0 {
		return
	}
	n := len(stack) - 1
	prior := stack[n]
	t.stacks[cmdBuf] = stack[:n]
	t.bound[cmdBuf] = prior
	if rebind != nil {
		rebind(prior)
	}
}

// BeginCommandBuffer clears any stale tracked binding state for cmdBuf
// (a command buffer begin implicitly resets the pipeline/descriptor
// bindings a prior recording left behind) and forwards to
// vk.BeginCommandBuffer.
func (t *Table) BeginCommandBuffer(cmdBuf vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	delete(t.bound, cmdBuf)
	delete(t.stacks, cmdBuf)
	return vk.BeginCommandBuffer(cmdBuf, info)
}

// PresentHook is the (skip, error) hook contract vkQueuePresentKHR
// dispatches through, mirroring DXGISwapChain.Present's replace-phase
// skip semantics.
type PresentHook func(info *vk.PresentInfo) (skip bool, err error)

// QueuePresentKHR runs hooks in order, stopping at the first one that
// reports skip=true, then -- unless skipped -- issues the native present.
func (t *Table) QueuePresentKHR(queue vk.Queue, info *vk.PresentInfo, hooks []PresentHook) vk.Result {
	for _, h := range hooks {
		skip, err := h(info)
		if err != nil {
			return vk.ErrorUnknown
		}
		if skip {
			return vk.Success
		}
	}
	return vk.QueuePresentKHR(queue, info)
}
