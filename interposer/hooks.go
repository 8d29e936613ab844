package interposer

// API function identifiers used as hook registration keys. These are the
// proxy methods whose method stream the design notes call out as
// semantically interesting enough to hook; everything else on a proxied
// interface forwards unchanged and never needs a stable identifier.
const (
	APIPresent             = "IDXGISwapChain.Present"
	APIPresent1            = "IDXGISwapChain1.Present1"
	APIResizeBuffers       = "IDXGISwapChain.ResizeBuffers"
	APIExecuteCommandLists = "ID3D12CommandQueue.ExecuteCommandLists"
	APICreateCommandList   = "ID3D12Device.CreateCommandList"
	APIClose               = "ID3D12GraphicsCommandList.Close"
)

// PresentArgs is the args value passed to hooks registered against
// APIPresent/APIPresent1.
type PresentArgs struct {
	SyncInterval uint32
	Flags        uint32
}

// ResizeBuffersArgs is the args value passed to hooks registered against
// APIResizeBuffers.
type ResizeBuffersArgs struct {
	BufferCount uint32
	Width       uint32
	Height      uint32
	Format      uint32
	Flags       uint32
}

// ExecuteCommandListsArgs is the args value passed to hooks registered
// against APIExecuteCommandLists.
type ExecuteCommandListsArgs struct {
	CommandLists []NativePointer
}
