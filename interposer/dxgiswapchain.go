//go:build windows

package interposer

// DXGISwapChain proxies IDXGISwapChain/IDXGISwapChain1: it holds a
// reference to the device (D3D11 or D3D12) that created it, routes
// Present/Present1 through registered hooks (a replace-phase hook
// returning skip=true suppresses the native present -- frame generation
// inserting its own), and runs a ResizeBuffers pre-hook that clears the
// CHI's cached SRV/UAV heap entries so no stale reference to an
// about-to-be-released back buffer survives the resize.
type DXGISwapChain struct {
	*Base
	dispatcher *Dispatcher

	device NativePointer // the D3D11 or D3D12 device that created this swap chain

	// invalidateHeap, if set, is called before ResizeBuffers proceeds --
	// wired to the owning chi.DescriptorHeap's Invalidate by whatever sets
	// up this proxy, so this package never imports chi directly.
	invalidateHeap func()
}

// NewDXGISwapChain wraps base in a proxy owned by device.
func NewDXGISwapChain(base NativePointer, device NativePointer, dispatcher *Dispatcher) *DXGISwapChain {
	return &DXGISwapChain{Base: NewBase(base), dispatcher: dispatcher, device: device}
}

// SetInvalidateHeap wires the callback ResizeBuffers invokes before the
// native call, to drop cached SRV/UAV heap entries for this swap chain's
// back buffers.
func (s *DXGISwapChain) SetInvalidateHeap(fn func()) { s.invalidateHeap = fn }

// Device returns the device that created this swap chain.
func (s *DXGISwapChain) Device() NativePointer { return s.device }

// Present runs the APIPresent hook sequence, then -- unless a replace hook
// skipped it -- callNative, then after hooks.
func (s *DXGISwapChain) Present(syncInterval, flags uint32, callNative func() error) error {
	return s.present(APIPresent, syncInterval, flags, callNative)
}

// Present1 is the IDXGISwapChain1 variant, routed through its own hook id
// since a plugin may register against one and not the other.
func (s *DXGISwapChain) Present1(syncInterval, flags uint32, callNative func() error) error {
	return s.present(APIPresent1, syncInterval, flags, callNative)
}

func (s *DXGISwapChain) present(apiID string, syncInterval, flags uint32, callNative func() error) error {
	args := PresentArgs{SyncInterval: syncInterval, Flags: flags}
	skip, err := s.dispatcher.Dispatch(apiID, args)
	if err != nil {
		return err
	}
	if !skip {
		if err := callNative(); err != nil {
			return err
		}
	}
	return s.dispatcher.RunAfter(apiID, args)
}

// ResizeBuffers clears the CHI's cached descriptor-heap entries for this
// swap chain's back buffers, runs any registered ResizeBuffers hooks, then
// -- unless skipped -- the native resize.
func (s *DXGISwapChain) ResizeBuffers(bufferCount, width, height, format, flags uint32, callNative func() error) error {
	if s.invalidateHeap != nil {
		s.invalidateHeap()
	}
	args := ResizeBuffersArgs{BufferCount: bufferCount, Width: width, Height: height, Format: format, Flags: flags}
	skip, err := s.dispatcher.Dispatch(APIResizeBuffers, args)
	if err != nil {
		return err
	}
	if !skip {
		if err := callNative(); err != nil {
			return err
		}
	}
	return s.dispatcher.RunAfter(APIResizeBuffers, args)
}
