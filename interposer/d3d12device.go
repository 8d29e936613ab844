//go:build windows

package interposer

import "unsafe"

// D3D12Device proxies ID3D12Device (and its Device1..Device10 derivatives):
// every creation/query method forwards unchanged to the host's real
// device, except CreateCommandList, which is observed (ForwardWithState)
// so a freshly created command list can be wrapped in a D3D12CommandList
// proxy before it's handed back to the host.
type D3D12Device struct {
	*Base
	dispatcher *Dispatcher

	commandLists map[unsafe.Pointer]*D3D12CommandList
}

// NewD3D12Device wraps base in a proxy. dispatcher may be nil (no plugin
// manager wired yet, e.g. before init() completes).
func NewD3D12Device(base NativePointer, dispatcher *Dispatcher) *D3D12Device {
	return &D3D12Device{
		Base:         NewBase(base),
		dispatcher:   dispatcher,
		commandLists: make(map[unsafe.Pointer]*D3D12CommandList),
	}
}

// WrapCommandList wraps a command list the host has already created
// through its own ID3D12Device::CreateCommandList call and records the
// proxy under its native pointer for LookupCommandList -- this proxy never
// creates D3D12 objects itself.
func (d *D3D12Device) WrapCommandList(native NativePointer) *D3D12CommandList {
	cl := NewD3D12CommandList(native)
	d.commandLists[native.Pointer()] = cl
	return cl
}

// LookupCommandList returns the proxy previously recorded for a native
// pointer, if any. D3D12CommandQueue.ExecuteCommandLists does not call it;
// its hooks receive the submitted native pointers as given.
func (d *D3D12Device) LookupCommandList(native unsafe.Pointer) (*D3D12CommandList, bool) {
	cl, ok := d.commandLists[native]
	return cl, ok
}

// D3D12CommandQueue proxies ID3D12CommandQueue: ExecuteCommandLists
// dispatches through registered hooks (ForwardThroughHooks) since a
// feature plugin's compute pass needs visibility into what's being
// submitted; everything else (GetTimestampFrequency, Signal, Wait, ...)
// forwards unchanged.
type D3D12CommandQueue struct {
	*Base
	dispatcher *Dispatcher
}

// NewD3D12CommandQueue wraps base in a proxy.
func NewD3D12CommandQueue(base NativePointer, dispatcher *Dispatcher) *D3D12CommandQueue {
	return &D3D12CommandQueue{Base: NewBase(base), dispatcher: dispatcher}
}

// ExecuteCommandLists runs the registered before/replace hooks, then
// (unless a replace hook skipped it) the caller issues the native
// ID3D12CommandQueue::ExecuteCommandLists call, then after hooks run.
// callNative is the host's own call, injected so this proxy never needs
// to marshal the native variadic command-list array itself.
func (q *D3D12CommandQueue) ExecuteCommandLists(lists []NativePointer, callNative func() error) error {
	args := ExecuteCommandListsArgs{CommandLists: lists}
	skip, err := q.dispatcher.Dispatch(APIExecuteCommandLists, args)
	if err != nil {
		return err
	}
	if !skip {
		if err := callNative(); err != nil {
			return err
		}
	}
	return q.dispatcher.RunAfter(APIExecuteCommandLists, args)
}
