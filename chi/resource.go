package chi

import "fmt"

// Format is the portable pixel/element format every backend's
// getCorrectFormat view conversions are expressed against. nativeFormat is
// the backend-specific integer it round-trips to/from (DXGI_FORMAT,
// VkFormat, or the D3D11 equivalent).
type Format uint32

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatRGBA8Typeless
	FormatRGBA16Float
	FormatRGBA32Float
	FormatR32Float
	FormatR32Typeless
	FormatR32Uint
	FormatD32Float
	FormatD24UnormS8Uint
	FormatD32FloatTypeless
	FormatBC7Unorm
)

// getCorrectFormat replaces a depth or typeless format with a compatible
// typed view format, as required when creating an SRV/UAV over a resource
// that was allocated with a typeless or depth/stencil format.
func getCorrectFormat(f Format) Format {
	switch f {
	case FormatD32Float, FormatD32FloatTypeless, FormatR32Typeless:
		return FormatR32Float
	case FormatD24UnormS8Uint:
		return FormatR32Uint
	case FormatRGBA8Typeless:
		return FormatRGBA8Unorm
	default:
		return f
	}
}

// Flags describes the usages a resource was created to support -- the
// static, creation-time capabilities, as opposed to State below which is the
// resource's current barrier/transition state.
type Flags uint32

const (
	FlagShaderResource Flags = 1 << iota
	FlagShaderResourceStorage
	FlagColorAttachment
	FlagDepthStencilAttachment
	FlagRawOrStructuredBuffer
	FlagConstantBuffer
	FlagSharedResource
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// State is the resource's current barrier/transition state, the target
// operand of transitionResources. Values are a bitset so UAV<->UAV
// transitions (both StorageRW) can be recognized as a no-layout-change case
// requiring only a UAV barrier.
type State uint32

const (
	StatePresent State = 1 << iota
	StateTextureRead
	StateStorageRW
	StateColorAttachmentWrite
	StateDepthStencilRead
	StateDepthStencilWrite
	StateCopySource
	StateCopyDestination
	StateResolveSource
	StateResolveDestination
	StateAccelStructRead
	StateAccelStructWrite
	StateArgumentBuffer
	StateIndexBuffer
	StateConstantBuffer
	StateVertexBuffer
)

func (s State) String() string {
	return fmt.Sprintf("State(%#x)", uint32(s))
}

// PrecisionInfo chains after a resource tag to describe the numeric
// precision a feature should assume for the resource (e.g. a motion-vector
// buffer stored at reduced precision). Optional; nil means "assume default
// precision for the format".
type PrecisionInfo struct {
	BitsPerChannel int
	Signed         bool
}

// Descriptor is the portable resource descriptor every backend's create
// path (createBuffer, createTexture2D) takes and every pool/VRAM-accounting
// entry is hashed from.
type Descriptor struct {
	Width, Height, Depth uint32
	Mips                 uint32
	NativeFormat         Format
	State                State
	Flags                Flags
	Name                 string

	// HeapType and CreationMask / VisibilityMask are backend hints: D3D12
	// heap type, and the node/GPU masks used for multi-adapter creation.
	// Backends that don't have a concept for these ignore them.
	HeapType       uint32
	CreationMask   uint32
	VisibilityMask uint32

	// GPUVirtualAddress is populated by the backend after creation for
	// buffer resources whose native API exposes one (D3D12); zero
	// otherwise.
	GPUVirtualAddress uint64

	// Precision carries an optional PrecisionInfo chained after a resource
	// tag in the host's inputs array.
	Precision *PrecisionInfo
}

// hashKey returns the key the resource pool hashes allocations by:
// (w, h, format, mips, depth, flags, state).
func (d Descriptor) hashKey() poolKey {
	return poolKey{
		width:  d.Width,
		height: d.Height,
		depth:  d.Depth,
		format: d.NativeFormat,
		mips:   d.Mips,
		flags:  d.Flags,
		state:  d.State,
	}
}

// Native is an opaque backend-owned resource handle (an *ID3D12Resource,
// VkImage/VkBuffer, or *ID3D11Resource) plus the portable Descriptor it was
// created from.
type Native struct {
	Handle     any
	Descriptor Descriptor

	// TrackerIndex is this resource's dense index into the owning backend's
	// usage tracker (package chi/track), assigned when a backend's
	// CreateBuffer routes the new resource through its tracker and freed on
	// DestroyResource. Zero (track.TrackerIndex's zero value is a valid
	// index, not "unset") for a backend that does not track this resource
	// kind; callers that care use the backend's own bookkeeping, not this
	// field, to decide whether a given Native is tracked.
	TrackerIndex uint32
}

// TrackedTable detects driver pointer recycling: it is keyed by the host's
// own tag id (not a core-generated id), so startTrackingResource /
// stopTrackingResource can tell whether the native pointer the host just
// tagged is the same one already on file for that id or a recycled address
// the driver reused after a prior resource was destroyed.
type TrackedTable struct {
	entries map[uint32]any
}

// NewTrackedTable constructs an empty TrackedTable.
func NewTrackedTable() *TrackedTable {
	return &TrackedTable{entries: make(map[uint32]any)}
}

// Start records native as the tracked pointer for id, returning true if a
// different pointer was already tracked under id (i.e. the driver recycled
// the id onto a new allocation and the caller should treat any cached state
// keyed by id as invalidated).
func (t *TrackedTable) Start(id uint32, native any) (recycled bool) {
	prev, ok := t.entries[id]
	t.entries[id] = native
	return ok && prev != native
}

// Stop removes id from the tracked table.
func (t *TrackedTable) Stop(id uint32) {
	delete(t.entries, id)
}

// Lookup returns the native pointer tracked under id, if any.
func (t *TrackedTable) Lookup(id uint32) (any, bool) {
	v, ok := t.entries[id]
	return v, ok
}
