package core

import (
	"sync"
)

// TagType identifies the semantic role a resource tag fills for a viewport
// (color, depth, motion vectors, ...). The concrete enumeration of roles is
// feature-plugin territory; the core treats these as opaque small integers.
type TagType uint32

// Lifecycle bounds how long a tag's resource may be dereferenced after the
// call that set it.
type Lifecycle int

const (
	// OnlyValidNow: usable only during the evaluate call it was set for.
	OnlyValidNow Lifecycle = iota
	// ValidUntilEvaluate: usable by any plugin's evaluate in this frame.
	ValidUntilEvaluate
	// ValidUntilPresent: usable until the next Present, across evaluates.
	ValidUntilPresent
)

// ResourceState is a portable bitset each CHI backend maps to its native
// state enum. Only the subset relevant to tag tracking (the copy-destination
// transition used when cloning a volatile tag) is modeled here; the CHI
// package owns the full state vocabulary used during command recording.
type ResourceState uint32

const (
	StateUnknown         ResourceState = 0
	StateCopyDestination ResourceState = 1 << (iota - 1)
	StateCopySource
	StateShaderResource
)

// NativeResource is the CHI-backend-specific resource handle a tag wraps.
// The core never dereferences it; it only threads the value through to the
// backend when a clone copy is required.
type NativeResource any

// Resource describes one (type, viewport) tag: a native resource plus the
// bookkeeping the core needs (extent for validation, optional precision
// hint, lifecycle, and current state).
type Resource struct {
	Native    NativeResource
	State     ResourceState
	Width     uint32
	Height    uint32
	Precision *int // nil when the plugin did not supply a precision hint
}

// CommonResource wraps a tag's source resource plus an optional clone --
// owned by the resource pool -- used when the tag is volatile (lifecycle
// OnlyValidNow or ValidUntilEvaluate) but some plugin has registered a
// requirement to use it past the point it would otherwise be invalidated.
type CommonResource struct {
	Source    Resource
	Clone     *Resource
	Lifecycle Lifecycle
}

// Effective returns the clone if present, else the source -- tag reads
// always prefer a clone over the original when both exist.
func (c CommonResource) Effective() Resource {
	if c.Clone != nil {
		return *c.Clone
	}
	return c.Source
}

type tagKey struct {
	Type     TagType
	Viewport Viewport
}

type requiredKey struct {
	Viewport Viewport
	Type     TagType
}

// Cloner allocates and populates a clone of a resource through the CHI's
// resource pool and copy path. It is supplied by the package wiring this
// store to a concrete backend; the core depends only
// on this narrow capability, not on any backend type.
type Cloner interface {
	// Clone allocates a resource compatible with src (same dimensions,
	// format, flags) and records a copy of src into it under cmdBuffer,
	// leaving the clone in StateCopyDestination; the caller is responsible
	// for transitioning it onward and for reversing the transition when
	// the caller's scope ends.
	Clone(src Resource, cmdBuffer any) (*Resource, error)
}

// TagStore is the globally keyed (type, viewportId) → CommonResource table,
// plus the required-tag set plugins populate during evaluate.
type TagStore struct {
	mu   sync.Mutex
	tags map[tagKey]CommonResource

	required map[requiredKey]Lifecycle

	cloner Cloner
}

// NewTagStore creates an empty store. cloner may be nil; in that case Set
// never clones (every tag is stored as-is), which is adequate for tests and
// for hosts that never register a ValidUntilPresent requirement.
func NewTagStore(cloner Cloner) *TagStore {
	return &TagStore{
		tags:     make(map[tagKey]CommonResource),
		required: make(map[requiredKey]Lifecycle),
		cloner:   cloner,
	}
}

// RequireTag implements required-tag registration: as a plugin requests a
// tag during evaluate, its (viewport, type, lifecycle) triple is recorded so
// a later Set on that key knows to clone.
func (s *TagStore) RequireTag(viewport Viewport, t TagType, lifecycle Lifecycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.required[requiredKey{Viewport: viewport, Type: t}] = lifecycle
}

// Set implements setTag for one (type, viewportId). If the tag's lifecycle
// is volatile (OnlyValidNow or ValidUntilEvaluate) and some plugin has
// registered a requirement on this (viewport, type) pair that needs the
// resource to outlive that lifecycle, the source is cloned via s.cloner and
// the clone -- not the source -- is what later reads return.
func (s *TagStore) Set(viewport Viewport, t TagType, res Resource, lifecycle Lifecycle, cmdBuffer any) error {
	s.mu.Lock()
	needsClone := false
	if lifecycle != ValidUntilPresent {
		if required, ok := s.required[requiredKey{Viewport: viewport, Type: t}]; ok && required > lifecycle {
			needsClone = true
		}
	}
	s.mu.Unlock()

	common := CommonResource{Source: res, Lifecycle: lifecycle}
	if needsClone && s.cloner != nil {
		clone, err := s.cloner.Clone(res, cmdBuffer)
		if err != nil {
			return err
		}
		common.Clone = clone
	}

	s.mu.Lock()
	s.tags[tagKey{Type: t, Viewport: viewport}] = common
	s.mu.Unlock()
	return nil
}

// Get resolves a tag query, returning the clone when one is present.
func (s *TagStore) Get(viewport Viewport, t TagType) (Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	common, ok := s.tags[tagKey{Type: t, Viewport: viewport}]
	if !ok {
		return Resource{}, false
	}
	return common.Effective(), true
}

// ClearViewport drops every tag and required-tag entry for viewport.
func (s *TagStore) ClearViewport(viewport Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.tags {
		if k.Viewport == viewport {
			delete(s.tags, k)
		}
	}
	for k := range s.required {
		if k.Viewport == viewport {
			delete(s.required, k)
		}
	}
}
