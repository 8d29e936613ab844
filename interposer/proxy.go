// Package interposer implements the graphics-API proxy layer: one proxy
// object per interface whose method stream is semantically interesting to
// a loaded plugin, forwarding everything else straight through to the
// host's native object. Proxies share a common base (m_base, reference
// count, interface-version high-water-mark) and dispatch through the
// plugin manager's (apiFunctionId, plugin) hook table.
package interposer

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sl-streamline/core/plugin"
)

// NativePointer is the narrow surface every proxy needs from the wrapped
// native object: its address, for the m_base field external tools walk
// through, and nothing else -- the actual vtable dispatch happens through
// the host's own COM/Vulkan-loader call sites, not by this module
// re-implementing vtable layout.
type NativePointer interface {
	Pointer() unsafe.Pointer
}

// Base is the shared proxy state every interposer proxy embeds: a pointer
// to the wrapped native object at a fixed field (so external tools can
// walk through the proxy the way the design notes describe), an atomic
// reference count, and the highest interface version successfully
// acquired from the base via QueryInterface.
type Base struct {
	// MBase is deliberately the first field: proxies that need to be
	// walked by address from outside this package (debuggers, the host's
	// own diagnostics) rely on it being at a fixed, predictable offset.
	MBase NativePointer

	refCount atomic.Int64

	mu               sync.Mutex
	interfaceVersion int
	upgraded         map[int]NativePointer
}

// NewBase constructs a Base wrapping base, with an initial reference count
// of 1 and interface version 0 (no upgrade queried yet).
func NewBase(base NativePointer) *Base {
	b := &Base{MBase: base, upgraded: make(map[int]NativePointer)}
	b.refCount.Store(1)
	return b
}

// AddRef increments the reference count, mirroring IUnknown::AddRef.
func (b *Base) AddRef() int64 { return b.refCount.Add(1) }

// Release decrements the reference count, mirroring IUnknown::Release.
// The caller is responsible for tearing the proxy down once it reaches 0;
// this method only reports the new count.
func (b *Base) Release() int64 { return b.refCount.Add(-1) }

// RefCount reports the current reference count.
func (b *Base) RefCount() int64 { return b.refCount.Load() }

// QueryVersion implements the interface-upgrade contract: a request for a
// version already cached, or for one ≤ the highest version acquired so far,
// is served from the cache (the latter with the highest version's pointer);
// an unseen version invokes query (the host's own QueryInterface-equivalent
// for the requested derived interface), caching the result and raising
// m_interfaceVersion on success.
func (b *Base) QueryVersion(version int, query func(version int) (NativePointer, error)) (NativePointer, error) {
	b.mu.Lock()
	if ptr, ok := b.upgraded[version]; ok {
		b.mu.Unlock()
		return ptr, nil
	}
	if ptr, ok := b.upgraded[b.interfaceVersion]; ok && version <= b.interfaceVersion {
		b.mu.Unlock()
		return ptr, nil
	}
	b.mu.Unlock()

	ptr, err := query(version)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.upgraded[version] = ptr
	if version > b.interfaceVersion {
		b.interfaceVersion = version
	}
	return ptr, nil
}

// InterfaceVersion reports the highest interface version successfully
// acquired so far.
func (b *Base) InterfaceVersion() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interfaceVersion
}

// ForwardKind is which of the three forwarding-contract shapes a proxy
// method uses for one call.
type ForwardKind int

const (
	// ForwardUnchanged: call the native method, return its result as-is.
	ForwardUnchanged ForwardKind = iota
	// ForwardWithState: record proxy-local state, then forward unchanged.
	ForwardWithState
	// ForwardThroughHooks: dispatch through registered before/replace/after hooks.
	ForwardThroughHooks
)

// Dispatcher runs the before/replace/after hook sequence for one
// apiFunctionId against the plugin manager's registered hooks, and reports
// whether the caller should skip the native call (a replace-phase hook
// returning skip=true, e.g. frame generation suppressing Present).
type Dispatcher struct {
	manager *plugin.Manager
}

// NewDispatcher wraps manager's hook table for proxy method dispatch.
func NewDispatcher(manager *plugin.Manager) *Dispatcher {
	return &Dispatcher{manager: manager}
}

// Dispatch runs every registered before hook, then every replace hook
// (stopping at the first one that reports skip=true), then -- if the
// caller still intends to make the native call -- returns skip=false so
// the caller proceeds; after hooks are the caller's responsibility to run
// once the native call (or the replace in its place) has completed, via
// RunAfter.
func (d *Dispatcher) Dispatch(apiFunctionID string, args any) (skip bool, err error) {
	if d == nil || d.manager == nil {
		return false, nil
	}
	for _, h := range d.manager.Hooks(apiFunctionID, plugin.PhaseBefore) {
		if _, err := h(args); err != nil {
			return false, err
		}
	}
	for _, h := range d.manager.Hooks(apiFunctionID, plugin.PhaseReplace) {
		s, err := h(args)
		if err != nil {
			return false, err
		}
		if s {
			return true, nil
		}
	}
	return false, nil
}

// RunAfter runs every registered after hook for apiFunctionID.
func (d *Dispatcher) RunAfter(apiFunctionID string, args any) error {
	if d == nil || d.manager == nil {
		return nil
	}
	for _, h := range d.manager.Hooks(apiFunctionID, plugin.PhaseAfter) {
		if _, err := h(args); err != nil {
			return err
		}
	}
	return nil
}
