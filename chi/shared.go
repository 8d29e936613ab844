package chi

import (
	"fmt"
	"sync"
)

// sharedKey identifies one cached translated-resource triple: which backend
// produced it, for which other backend, over which source resource.
type sharedKey struct {
	source    *Native
	fromKind  string
	toKind    string
	assetType uint32
}

// SharedResourceEntry is the cached shared-handle triple
// fetchTranslatedResourceFromCache returns: the translated resource usable
// by the other backend, plus the intermediate shareable clone (if one had
// to be allocated because source was not natively shareable).
type SharedResourceEntry struct {
	Translated *Native
	Clone      *Native
}

// SharedResourceCache implements fetchTranslatedResourceFromCache: it
// produces (and memoizes) a resource addressable by a different backend
// than the one that owns the source. When source is not shareable, a
// shareable clone is allocated in the source backend and copied into via
// the copy_cs kernel before the handle is exported -- needed for D3D11 ->
// D3D12 bridging, since many depth/stencil formats are not NT-shareable.
type SharedResourceCache struct {
	mu      sync.Mutex
	entries map[sharedKey]SharedResourceEntry
	kernels *KernelCache
}

// NewSharedResourceCache constructs a SharedResourceCache that uses kernels
// to intern the copy_cs translation shader on demand.
func NewSharedResourceCache(kernels *KernelCache) *SharedResourceCache {
	return &SharedResourceCache{entries: make(map[sharedKey]SharedResourceEntry), kernels: kernels}
}

// IsShareable reports whether desc's format/flags can be exported as a
// native shared handle without an intermediate copy. Depth/stencil formats
// are the common case that cannot.
func IsShareable(desc Descriptor) bool {
	switch desc.NativeFormat {
	case FormatD32Float, FormatD24UnormS8Uint, FormatD32FloatTypeless:
		return false
	default:
		return desc.Flags.Has(FlagSharedResource)
	}
}

// FetchTranslatedResource returns a resource addressable by toBackend,
// allocating and populating a shareable clone via allocateClone/copyInto if
// source is not natively shareable. Subsequent calls with the same
// (source, fromBackend, toBackend, assetType) tuple return the cached
// entry without re-copying.
func (c *SharedResourceCache) FetchTranslatedResource(
	source *Native,
	fromBackend, toBackend string,
	assetType uint32,
	allocateClone func(desc Descriptor) (*Native, error),
	copyInto func(dst, src *Native) error,
) (SharedResourceEntry, error) {
	key := sharedKey{source: source, fromKind: fromBackend, toKind: toBackend, assetType: assetType}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return entry, nil
	}
	c.mu.Unlock()

	entry := SharedResourceEntry{Translated: source}
	if !IsShareable(source.Descriptor) {
		cloneDesc := source.Descriptor
		cloneDesc.Flags |= FlagSharedResource
		clone, err := allocateClone(cloneDesc)
		if err != nil {
			return SharedResourceEntry{}, fmt.Errorf("chi: shared resource clone alloc: %w", err)
		}
		if _, err := c.kernels.InternCopyKernel(); err != nil {
			return SharedResourceEntry{}, fmt.Errorf("chi: shared resource copy_cs intern: %w", err)
		}
		if err := copyInto(clone, source); err != nil {
			return SharedResourceEntry{}, fmt.Errorf("chi: shared resource copy: %w", err)
		}
		entry = SharedResourceEntry{Translated: clone, Clone: clone}
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry, nil
}

// Invalidate drops every cached entry keyed by source, called when source is
// destroyed.
func (c *SharedResourceCache) Invalidate(source *Native) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.source == source {
			delete(c.entries, k)
		}
	}
}
